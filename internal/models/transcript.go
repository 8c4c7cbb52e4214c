package models

// Acquisition is the normalized output of one acquisition path: the
// transcript plus whatever the source knows about itself.
type Acquisition struct {
	Transcript string
	Source     SourceKind
	Metadata   map[string]interface{}
}

// CaptionTrack is one caption track advertised on a video page.
type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	Name         string
	// Kind is "asr" for auto-generated tracks and empty for uploaded ones.
	Kind string
}

func (t CaptionTrack) AutoGenerated() bool {
	return t.Kind == "asr"
}

type CaptionSegment struct {
	Text     string
	Start    float64
	Duration float64
}

type VideoInfo struct {
	ID     string
	Title  string
	Tracks []CaptionTrack
}

// AudioPayload is an uploaded or recorded audio/video blob handed to a
// speech-to-text provider.
type AudioPayload struct {
	Name     string
	MimeType string
	Data     []byte
}

func (a AudioPayload) Size() int64 {
	return int64(len(a.Data))
}
