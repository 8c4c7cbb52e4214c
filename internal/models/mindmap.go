package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	DefaultCentral     = "Main Topic"
	DefaultBranchTitle = "Untitled Branch"
)

type Branch struct {
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
}

// Mindmap is the central-topic/branches/subtopics tree derived from a
// transcript.
type Mindmap struct {
	Central  string   `json:"central"`
	Branches []Branch `json:"branches"`
}

// FallbackMindmap returns the fixed structure substituted whenever a
// generated mindmap is missing or malformed.
func FallbackMindmap() Mindmap {
	return Mindmap{
		Central: DefaultCentral,
		Branches: []Branch{
			{
				Title:     "Key Points",
				Subtopics: []string{"Important concept 1", "Important concept 2", "Important concept 3"},
			},
			{
				Title:     "Details",
				Subtopics: []string{"Supporting detail 1", "Supporting detail 2"},
			},
			{
				Title:     "Summary",
				Subtopics: []string{"Main takeaway 1", "Main takeaway 2"},
			},
		},
	}
}

// JSON serializes the mindmap in the wire shape stored in Note.MindmapData.
func (m Mindmap) JSON() string {
	out := Mindmap{Central: m.Central, Branches: make([]Branch, len(m.Branches))}
	for i, b := range m.Branches {
		if b.Subtopics == nil {
			b.Subtopics = []string{}
		}
		out.Branches[i] = b
	}
	data, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseMindmap coerces raw model output into a Mindmap. The boolean is false
// when the input could not be used and the fallback structure was returned.
// A missing or empty "central", a "branches" value that is not an array, or
// input that is not a JSON object all yield the fallback. Individual branches
// are repaired rather than rejected.
func ParseMindmap(raw string) (Mindmap, bool) {
	var top struct {
		Central  json.RawMessage `json:"central"`
		Branches json.RawMessage `json:"branches"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &top); err != nil {
		return FallbackMindmap(), false
	}

	central, ok := rawString(top.Central)
	if !ok || strings.TrimSpace(central) == "" {
		return FallbackMindmap(), false
	}

	var rawBranches []json.RawMessage
	if !isArray(top.Branches) || json.Unmarshal(top.Branches, &rawBranches) != nil {
		return FallbackMindmap(), false
	}

	m := Mindmap{Central: central, Branches: make([]Branch, 0, len(rawBranches))}
	for _, rb := range rawBranches {
		m.Branches = append(m.Branches, parseBranch(rb))
	}
	return m, true
}

func parseBranch(raw json.RawMessage) Branch {
	b := Branch{Title: DefaultBranchTitle, Subtopics: []string{}}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return b
	}
	if title, ok := rawString(fields["title"]); ok && title != "" {
		b.Title = title
	}
	if !isArray(fields["subtopics"]) {
		return b
	}

	var items []json.RawMessage
	if err := json.Unmarshal(fields["subtopics"], &items); err != nil {
		return b
	}
	for _, item := range items {
		if s, ok := rawString(item); ok {
			b.Subtopics = append(b.Subtopics, s)
			continue
		}
		if text := strings.TrimSpace(string(item)); text != "" && text != "null" {
			b.Subtopics = append(b.Subtopics, text)
		}
	}
	return b
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// stripCodeFence removes a surrounding ```json ... ``` block, which chat
// models add even when asked for bare JSON.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
