package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/smartnotes/internal/models"
)

type ProcessorConfig struct {
	// MaxPromptChars caps the transcript handed to the language model.
	// Zero disables truncation.
	MaxPromptChars     int
	PreserveLineBreaks bool
}

// Processor normalizes transcript text coming out of the acquisition paths
// and trims it for prompting.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Normalize drops invalid UTF-8 and collapses runs of whitespace. With
// PreserveLineBreaks set, each line is collapsed on its own and blank lines
// are dropped.
func (p *Processor) Normalize(text string) string {
	text = SanitizeUTF8(text)

	if !p.config.PreserveLineBreaks {
		return CollapseWhitespace(text)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = CollapseWhitespace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// JoinSegments joins caption segments in order with single spaces.
func (p *Processor) JoinSegments(segments []models.CaptionSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := CollapseWhitespace(SanitizeUTF8(seg.Text)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// ForPrompt returns text cut to MaxPromptChars on a sentence boundary where
// one exists. The bool reports whether anything was cut.
func (p *Processor) ForPrompt(text string) (string, bool) {
	limit := p.config.MaxPromptChars
	if limit <= 0 || len(text) <= limit {
		return text, false
	}

	current := strings.Builder{}
	for _, sentence := range p.splitIntoSentences(text) {
		if current.Len()+len(sentence)+1 > limit {
			break
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		return current.String(), true
	}

	// A single sentence longer than the limit; cut on a rune boundary
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}

func (p *Processor) splitIntoSentences(text string) []string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		for _, ender := range sentenceEnders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SanitizeUTF8 drops bytes that are not valid UTF-8.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
