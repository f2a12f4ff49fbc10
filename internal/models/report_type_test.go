package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
		ok   bool
	}{
		{"", FieldText, true},
		{"text", FieldText, true},
		{"qa", FieldText, true},
		{" Image ", FieldImage, true},
		{"video", FieldVideo, true},
		{"audio", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFieldType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTypeOfDefaultsToText(t *testing.T) {
	rt := &ReportType{
		Fields:     []string{"name", "photo", "clip"},
		FieldTypes: []string{"qa", "image"},
	}
	assert.Equal(t, FieldText, rt.TypeOf(0))
	assert.Equal(t, FieldImage, rt.TypeOf(1))
	assert.Equal(t, FieldText, rt.TypeOf(2))
	assert.Equal(t, map[string]FieldType{"name": FieldText, "photo": FieldImage, "clip": FieldText}, rt.FieldTypeMap())
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeStruct.Valid())
	assert.True(t, ModeSmart.Valid())
	assert.False(t, Mode("free").Valid())
}
