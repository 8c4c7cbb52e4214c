// Package export renders transcripts, notes and mindmaps as Word documents.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
)

type ContentType string

const (
	TypeTranscript ContentType = "transcript"
	TypeNotes      ContentType = "notes"
	TypeMindmap    ContentType = "mindmap"
)

const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	bullet          = "• "
)

var titles = map[ContentType]string{
	TypeTranscript: "SMARTNOTES - TRANSCRIPT",
	TypeNotes:      "SMARTNOTES - STRUCTURED NOTES",
	TypeMindmap:    "SMARTNOTES - MINDMAP",
}

func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := titles[t]; !ok {
		return "", apperr.New(apperr.KindUnsupportedType, "Invalid export type")
	}
	return t, nil
}

type Style string

const (
	StyleTitle    Style = "Title"
	StyleHeading1 Style = "Heading1"
	StyleHeading2 Style = "Heading2"
	StyleHeading3 Style = "Heading3"
	StyleBullet   Style = "ListParagraph"
	StyleBody     Style = "Normal"
)

// Paragraph is one line of the exported document. An empty Text renders as a
// blank line.
type Paragraph struct {
	Style Style
	Text  string
}

type Payload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Build lays out content as paragraphs, preceded by the document title, a
// generation timestamp and a blank line.
func Build(content string, contentType ContentType, now time.Time) ([]Paragraph, error) {
	title, ok := titles[contentType]
	if !ok {
		return nil, apperr.New(apperr.KindUnsupportedType, "Invalid export type")
	}

	doc := []Paragraph{
		{Style: StyleTitle, Text: title},
		{Style: StyleBody, Text: "Generated: " + now.Format("January 2, 2006 3:04:05 PM MST")},
		{Style: StyleBody},
	}

	switch contentType {
	case TypeTranscript:
		for _, line := range splitLines(content) {
			doc = append(doc, Paragraph{Style: StyleBody, Text: strings.TrimSpace(line)})
		}
	case TypeNotes:
		for _, line := range splitLines(content) {
			doc = append(doc, notesParagraph(line))
		}
	case TypeMindmap:
		mindmap, _ := models.ParseMindmap(content)
		doc = append(doc, Paragraph{Style: StyleTitle, Text: mindmap.Central})
		for _, branch := range mindmap.Branches {
			doc = append(doc, Paragraph{Style: StyleHeading2, Text: branch.Title})
			for _, sub := range branch.Subtopics {
				doc = append(doc, Paragraph{Style: StyleBullet, Text: bullet + sub})
			}
		}
	}

	return doc, nil
}

func notesParagraph(line string) Paragraph {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return Paragraph{Style: StyleBody}
	case strings.HasPrefix(trimmed, "### "):
		return Paragraph{Style: StyleHeading3, Text: strings.TrimSpace(trimmed[4:])}
	case strings.HasPrefix(trimmed, "## "):
		return Paragraph{Style: StyleHeading2, Text: strings.TrimSpace(trimmed[3:])}
	case strings.HasPrefix(trimmed, "# "):
		return Paragraph{Style: StyleHeading1, Text: strings.TrimSpace(trimmed[2:])}
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
		return Paragraph{Style: StyleBullet, Text: bullet + strings.TrimSpace(trimmed[2:])}
	default:
		return Paragraph{Style: StyleBody, Text: trimmed}
	}
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

// Filename is smartnotes-<type>-<unix millis>.docx.
func Filename(contentType ContentType, now time.Time) string {
	return fmt.Sprintf("smartnotes-%s-%d.docx", contentType, now.UnixMilli())
}

// Export renders content as a .docx payload.
func Export(content string, contentType ContentType, now time.Time) (*Payload, error) {
	paragraphs, err := Build(content, contentType, now)
	if err != nil {
		return nil, err
	}

	data, err := Docx(paragraphs)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to write docx: %w", err))
	}

	return &Payload{
		Data:        data,
		Filename:    Filename(contentType, now),
		ContentType: DocxContentType,
	}, nil
}
