// Package reports stores report type definitions and the records collected
// against them. Every report type owns a record table and, in struct mode, a
// one-row question table managed through the tables registry.
package reports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"reportgen/internal/logger"
	"reportgen/internal/models"
	"reportgen/internal/tables"
)

type Service struct {
	db       *gorm.DB
	registry *tables.Registry
	log      *logger.Logger
}

func NewService(db *gorm.DB, registry *tables.Registry, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		registry: registry,
		log:      log.With("service", "ReportService"),
	}
}

// CreateParams describes a new report type.
type CreateParams struct {
	Name       string
	Mode       models.Mode
	Fields     []string
	FieldTypes []string // empty means all text
	Questions  []string // struct mode; padded with "" up to len(Fields)
	Prompt     *string  // smart mode
}

func (p *CreateParams) normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if p.Mode == "" {
		p.Mode = models.ModeStruct
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, p.Mode)
	}
	p.dropBlankFields()
	if err := tables.ValidateFields(p.Fields); err != nil {
		return err
	}

	if len(p.FieldTypes) == 0 {
		p.FieldTypes = make([]string, len(p.Fields))
	}
	if len(p.FieldTypes) != len(p.Fields) {
		return fmt.Errorf("%w: %d field types for %d fields", ErrSchemaMismatch, len(p.FieldTypes), len(p.Fields))
	}
	for i, raw := range p.FieldTypes {
		t, ok := models.ParseFieldType(raw)
		if !ok {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidArgument, p.Fields[i], raw)
		}
		p.FieldTypes[i] = string(t)
	}

	switch p.Mode {
	case models.ModeStruct:
		if len(p.Questions) > len(p.Fields) {
			return fmt.Errorf("%w: %d questions for %d fields", ErrSchemaMismatch, len(p.Questions), len(p.Fields))
		}
		p.Prompt = nil
	case models.ModeSmart:
		if len(p.Questions) > 0 {
			return fmt.Errorf("%w: smart mode report types have no per-field questions", ErrWrongMode)
		}
	}
	return nil
}

// dropBlankFields removes empty field names together with the question and
// type at the same position. Form submissions leave trailing blank rows.
func (p *CreateParams) dropBlankFields() {
	var fields, types, questions []string
	for i, f := range p.Fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		fields = append(fields, f)
		if i < len(p.FieldTypes) {
			types = append(types, p.FieldTypes[i])
		}
		if i < len(p.Questions) {
			questions = append(questions, p.Questions[i])
		}
	}
	if len(p.FieldTypes) > len(p.Fields) {
		types = append(types, p.FieldTypes[len(p.Fields):]...)
	}
	if len(p.Questions) > len(p.Fields) {
		questions = append(questions, p.Questions[len(p.Fields):]...)
	}
	p.Fields, p.FieldTypes, p.Questions = fields, types, questions
}

// Create persists a report type and provisions its tables in one
// transaction. In struct mode supplied questions seed the question table.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.ReportType, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	rt := &models.ReportType{
		Name:       p.Name,
		Mode:       p.Mode,
		Prompt:     p.Prompt,
		Fields:     p.Fields,
		FieldTypes: p.FieldTypes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ReportType{}).Where("name = ?", rt.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%q: %w", rt.Name, ErrNameTaken)
		}
		if err := tx.Create(rt).Error; err != nil {
			return err
		}
		if _, err := s.registry.RecordTable(tx, rt.ID, rt.Fields); err != nil {
			return err
		}
		if rt.Mode != models.ModeStruct {
			return nil
		}
		qt, err := s.registry.QuestionTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		if len(p.Questions) == 0 {
			return nil
		}
		_, err = insertRow(tx, qt, zipQuestions(rt.Fields, p.Questions))
		return err
	})
	if err != nil {
		if rt.ID != 0 {
			s.registry.InvalidateReportType(rt.ID)
		}
		return nil, err
	}

	s.log.Info("Report type created", "report_type_id", rt.ID, "name", rt.Name, "mode", rt.Mode, "fields", len(rt.Fields))
	return rt, nil
}

func (s *Service) List(ctx context.Context) ([]models.ReportType, error) {
	var out []models.ReportType
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.ReportType, error) {
	return getReportType(s.db.WithContext(ctx), id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*models.ReportType, error) {
	var rt models.ReportType
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&rt).Error; err != nil {
		return nil, notFound(fmt.Sprintf("report type %q", name), err)
	}
	return &rt, nil
}

func getReportType(tx *gorm.DB, id uint) (*models.ReportType, error) {
	var rt models.ReportType
	if err := tx.First(&rt, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("report type %d", id), err)
	}
	return &rt, nil
}

// UpdatePrompt replaces the free-text prompt of a smart mode report type.
func (s *Service) UpdatePrompt(ctx context.Context, id uint, prompt string) (*models.ReportType, error) {
	var rt *models.ReportType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rt, err = getReportType(tx, id)
		if err != nil {
			return err
		}
		if rt.Mode != models.ModeSmart {
			return fmt.Errorf("update prompt: %w", ErrWrongMode)
		}
		rt.Prompt = &prompt
		return tx.Model(rt).Update("prompt", prompt).Error
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// UpdateFields renames and tail-drops fields of a report type, keeping the
// physical tables and field_types aligned with the new list.
func (s *Service) UpdateFields(ctx context.Context, id uint, fields []string) (*models.ReportType, error) {
	l := s.registry.Lock(id)
	l.Lock()
	defer l.Unlock()

	var (
		rt   *models.ReportType
		plan tables.Plan
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rt, err = getReportType(tx, id)
		if err != nil {
			return err
		}
		plan, err = s.registry.EvolveReportType(tx, rt.ID, rt.Mode == models.ModeStruct, rt.Fields, fields)
		if errors.Is(err, tables.ErrUnsupportedEdit) {
			return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		if err != nil {
			return err
		}
		rt.Fields = slices.Clone(fields)
		if len(rt.FieldTypes) > len(fields) {
			rt.FieldTypes = rt.FieldTypes[:len(fields)]
		}
		return tx.Model(rt).Select("fields", "field_types").Updates(rt).Error
	})
	if err != nil {
		s.registry.InvalidateReportType(id)
		return nil, err
	}

	s.log.Info("Report type fields updated", "report_type_id", id, "renamed", len(plan.Renames), "dropped", len(plan.Drops))
	return rt, nil
}

// Delete drops both tables of a report type and then its definition.
func (s *Service) Delete(ctx context.Context, id uint) error {
	l := s.registry.Lock(id)
	l.Lock()
	defer l.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rt, err := getReportType(tx, id)
		if err != nil {
			return err
		}
		if err := s.registry.DropReportType(tx, rt.ID); err != nil {
			return err
		}
		return tx.Delete(rt).Error
	})
	s.registry.InvalidateReportType(id)
	if err != nil {
		return err
	}
	s.log.Info("Report type deleted", "report_type_id", id)
	return nil
}

func zipQuestions(fields, questions []string) map[string]string {
	out := make(map[string]string, len(fields))
	for i, f := range fields {
		q := ""
		if i < len(questions) {
			q = questions[i]
		}
		out[f] = q
	}
	return out
}
