package reports

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reportgen/internal/models"
	"reportgen/internal/tables"
)

// FieldInfo describes one field of a report type for input forms.
type FieldInfo struct {
	Name      string           `json:"field"`
	Question  string           `json:"question"`
	Type      models.FieldType `json:"type"`
	TypeLabel string           `json:"type_label"`
}

// Questions returns the per-field question prompts of a struct mode report
// type. Smart mode report types and report types without a stored question
// row yield an empty map.
func (s *Service) Questions(ctx context.Context, rt *models.ReportType) (map[string]string, error) {
	if rt.Mode != models.ModeStruct {
		return map[string]string{}, nil
	}
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	out := map[string]string{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.QuestionTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		var rows []map[string]interface{}
		if err := tx.Table(t.Name).Order(tables.PrimaryKey).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		out = toRecord(t, rows[0]).Values
		return nil
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
		return nil, err
	}
	return out, nil
}

// SetQuestions replaces the question row of a struct mode report type.
// Questions are matched to fields by position; missing ones are stored as "".
// The table keeps at most one row.
func (s *Service) SetQuestions(ctx context.Context, rt *models.ReportType, questions []string) error {
	if rt.Mode != models.ModeStruct {
		return fmt.Errorf("set questions: %w", ErrWrongMode)
	}
	if len(questions) > len(rt.Fields) {
		return fmt.Errorf("%w: %d questions for %d fields", ErrSchemaMismatch, len(questions), len(rt.Fields))
	}
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.QuestionTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM ?", clause.Table{Name: t.Name}).Error; err != nil {
			return err
		}
		_, err = insertRow(tx, t, zipQuestions(rt.Fields, questions))
		return err
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
		return err
	}
	s.log.Info("Questions updated", "report_type_id", rt.ID, "count", len(questions))
	return nil
}

// FieldInfos joins fields, their types and their questions in field order.
func (s *Service) FieldInfos(ctx context.Context, rt *models.ReportType) ([]FieldInfo, error) {
	questions, err := s.Questions(ctx, rt)
	if err != nil {
		return nil, err
	}
	out := make([]FieldInfo, 0, len(rt.Fields))
	for i, f := range rt.Fields {
		ft := rt.TypeOf(i)
		out = append(out, FieldInfo{
			Name:      f,
			Question:  questions[f],
			Type:      ft,
			TypeLabel: ft.Label(),
		})
	}
	return out, nil
}
