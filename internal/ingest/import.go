package ingest

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FieldsFromFile derives a field list from an uploaded file: the header row
// of an .xlsx workbook or the first lines of a .pdf. Other file types yield
// no fields.
func FieldsFromFile(filename string, data []byte) ([]string, error) {
	var raw []string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		s, err := ReadSheet(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		for _, h := range s.Headers {
			if h != "" {
				raw = append(raw, h)
			}
		}
	case ".pdf":
		lines, err := PDFLines(data)
		if err != nil {
			return nil, err
		}
		raw = FirstLines(lines, MaxPDFFields)
	default:
		return []string{}, nil
	}
	return NormalizeFieldNames(raw), nil
}

// DefaultQuestions returns DefaultQuestion for each field.
func DefaultQuestions(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = DefaultQuestion(f)
	}
	return out
}
