package models

import (
	"strings"

	"gorm.io/datatypes"
)

// Mode selects how values for a report type are collected.
type Mode string

const (
	// ModeStruct stores one question prompt per field.
	ModeStruct Mode = "struct"
	// ModeSmart uses one free-text prompt for LLM extraction of the whole record.
	ModeSmart Mode = "smart"
)

func (m Mode) Valid() bool {
	return m == ModeStruct || m == ModeSmart
}

// FieldType is the input kind of one field.
type FieldType string

const (
	FieldText  FieldType = "text"
	FieldImage FieldType = "image"
	FieldVideo FieldType = "video"

	// legacyFieldQA is the older spelling of FieldText.
	legacyFieldQA = "qa"
)

// ParseFieldType accepts text/image/video and the legacy "qa" alias.
// An empty string means text.
func ParseFieldType(s string) (FieldType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FieldText), legacyFieldQA:
		return FieldText, true
	case string(FieldImage):
		return FieldImage, true
	case string(FieldVideo):
		return FieldVideo, true
	default:
		return "", false
	}
}

// IsBlob reports whether values of this type are storage-relative paths.
func (t FieldType) IsBlob() bool {
	return t == FieldImage || t == FieldVideo
}

// Label is the display label used by the report UI.
func (t FieldType) Label() string {
	switch t {
	case FieldImage:
		return "画像"
	case FieldVideo:
		return "動画"
	default:
		return "テキスト"
	}
}

// ReportType defines the structure for user-defined report schemas.
type ReportType struct {
	ID         uint                        `json:"id" gorm:"primaryKey"`
	Name       string                      `json:"name" gorm:"uniqueIndex;not null"`
	Mode       Mode                        `json:"mode" gorm:"default:'struct'"`
	Prompt     *string                     `json:"prompt"` // smart mode only
	Fields     datatypes.JSONSlice[string] `json:"fields"`
	FieldTypes datatypes.JSONSlice[string] `json:"field_types"`
}

func (ReportType) TableName() string {
	return "report_types"
}

// TypeOf returns the type of the field at index i, defaulting to text when
// the type list is absent or shorter than the field list.
func (rt *ReportType) TypeOf(i int) FieldType {
	if i < 0 || i >= len(rt.FieldTypes) {
		return FieldText
	}
	t, ok := ParseFieldType(rt.FieldTypes[i])
	if !ok {
		return FieldText
	}
	return t
}

// FieldTypeMap maps each field name to its type.
func (rt *ReportType) FieldTypeMap() map[string]FieldType {
	out := make(map[string]FieldType, len(rt.Fields))
	for i, f := range rt.Fields {
		out[f] = rt.TypeOf(i)
	}
	return out
}

// PromptText returns the smart-mode prompt or "".
func (rt *ReportType) PromptText() string {
	if rt.Prompt == nil {
		return ""
	}
	return *rt.Prompt
}
