package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxPDFFields is how many lines of a PDF become candidate fields.
const MaxPDFFields = 10

// PDFLines returns the non-empty text lines of a PDF in page order.
func PDFLines(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, t := range row.Content {
				sb.WriteString(t.S)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

// FirstLines returns up to n non-empty trimmed lines.
func FirstLines(lines []string, n int) []string {
	out := make([]string, 0, n)
	for _, l := range lines {
		if len(out) == n {
			break
		}
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
