package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of files written by ExportRecord.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrEmptySheet = errors.New("spreadsheet has no header row")

// Sheet is the first worksheet of a workbook: a header row and the data
// rows below it. Fully blank rows are skipped.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// ReadSheet parses an xlsx workbook and returns its first worksheet.
func ReadSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	s := &Sheet{}
	for _, h := range rows[0] {
		s.Headers = append(s.Headers, strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// Records projects every data row onto fields. A column feeds a field when
// its header equals the field name or normalizes to it. Fields with no
// column, and short rows, get "".
func (s *Sheet) Records(fields []string) []map[string]string {
	col := make(map[string]int, len(fields))
	for i, h := range s.Headers {
		for _, f := range fields {
			if _, ok := col[f]; ok {
				continue
			}
			if h == f || NormalizeFieldName(h) == f {
				col[f] = i
			}
		}
	}

	out := make([]map[string]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec := make(map[string]string, len(fields))
		for _, f := range fields {
			v := ""
			if i, ok := col[f]; ok && i < len(row) {
				v = row[i]
			}
			rec[f] = v
		}
		out = append(out, rec)
	}
	return out
}

// ExportRecord writes a workbook with one header row of fields and one row
// of values in the same order.
func ExportRecord(fields []string, values map[string]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(fields))
	row := make([]interface{}, len(fields))
	for i, name := range fields {
		header[i] = name
		row[i] = values[name]
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A2", &row); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
