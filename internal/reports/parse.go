package reports

import (
	"context"
	"fmt"

	"reportgen/internal/models"
)

// Extractor turns free text into values keyed by field name.
type Extractor interface {
	ExtractFields(ctx context.Context, text string, fields []string, prompt string) (map[string]string, error)
}

// ParseResult is the outcome of ParseAndInsert. Inserted is false when the
// extractor returned nothing usable; ID is then zero.
type ParseResult struct {
	ID       int64             `json:"id,omitempty"`
	Inserted bool              `json:"inserted"`
	Data     map[string]string `json:"data"`
}

// ParseAndInsert extracts values for a smart mode report type from text and
// stores them as one record. Values for keys that are not fields of the
// report type are discarded.
func (s *Service) ParseAndInsert(ctx context.Context, rt *models.ReportType, ex Extractor, text string) (ParseResult, error) {
	if rt.Mode != models.ModeSmart {
		return ParseResult{}, fmt.Errorf("parse: %w", ErrWrongMode)
	}
	raw, err := ex.ExtractFields(ctx, text, rt.Fields, rt.PromptText())
	if err != nil {
		return ParseResult{}, err
	}

	data := make(map[string]string, len(rt.Fields))
	for _, f := range rt.Fields {
		if v, ok := raw[f]; ok {
			data[f] = v
		}
	}
	if dropped := len(raw) - len(data); dropped > 0 {
		s.log.Debug("Extracted keys outside field list discarded", "report_type_id", rt.ID, "dropped", dropped)
	}
	if len(data) == 0 {
		s.log.Warn("Nothing extracted, no record inserted", "report_type_id", rt.ID)
		return ParseResult{Data: data}, nil
	}

	id, err := s.InsertRecord(ctx, rt, data)
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{ID: id, Inserted: true, Data: data}, nil
}
