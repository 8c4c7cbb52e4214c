package export

import (
	"bytes"
	"fmt"

	"github.com/gomutex/godocx"
)

var headingLevels = map[Style]uint{
	StyleTitle:    0,
	StyleHeading1: 1,
	StyleHeading2: 2,
	StyleHeading3: 3,
}

// Docx packages paragraphs as a WordprocessingML document.
func Docx(paragraphs []Paragraph) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("new document: %w", err)
	}

	for _, p := range paragraphs {
		if level, ok := headingLevels[p.Style]; ok {
			if _, err := doc.AddHeading(p.Text, level); err != nil {
				return nil, fmt.Errorf("add heading: %w", err)
			}
			continue
		}

		para := doc.AddParagraph(p.Text)
		if p.Style != StyleBody {
			para.Style(string(p.Style))
		}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), nil
}
