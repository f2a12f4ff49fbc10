package tables

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		ident   string
		wantErr bool
	}{
		{name: "ascii", ident: "customer_name"},
		{name: "leading underscore", ident: "_x1"},
		{name: "japanese", ident: "氏名"},
		{name: "empty", ident: "", wantErr: true},
		{name: "leading digit", ident: "1st", wantErr: true},
		{name: "space", ident: "first name", wantErr: true},
		{name: "quote", ident: `a"; DROP TABLE report_types; --`, wantErr: true},
		{name: "reserved id", ident: "ID", wantErr: true},
		{name: "too long", ident: strings.Repeat("a", MaxIdentifierBytes+1), wantErr: true},
		{name: "max length", ident: strings.Repeat("a", MaxIdentifierBytes)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.ident)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFieldsRejectsDuplicates(t *testing.T) {
	assert.NoError(t, ValidateFields([]string{"a", "b"}))
	assert.NoError(t, ValidateFields(nil))
	assert.ErrorIs(t, ValidateFields([]string{"a", "b", "a"}), ErrInvalidIdentifier)
	assert.ErrorIs(t, ValidateFields([]string{"Name", "name"}), ErrInvalidIdentifier)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "report_7", RecordTableName(7))
	assert.Equal(t, "report_7_questions", QuestionTableName(7))
}
