package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"reportgen/internal/ingest"
	"reportgen/internal/llm"
	"reportgen/internal/reports"
	"reportgen/internal/tables"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("report type 3: %w", reports.ErrNotFound), http.StatusNotFound},
		{reports.ErrNameTaken, http.StatusConflict},
		{reports.ErrWrongMode, http.StatusBadRequest},
		{fmt.Errorf("%w: swap", reports.ErrSchemaMismatch), http.StatusBadRequest},
		{reports.ErrInvalidArgument, http.StatusBadRequest},
		{reports.ErrUnknownField, http.StatusBadRequest},
		{tables.ErrInvalidIdentifier, http.StatusBadRequest},
		{ingest.ErrEmptySheet, http.StatusBadRequest},
		{fmt.Errorf("%w: 9 bytes", errFileTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: http 500", llm.ErrUpstream), http.StatusBadGateway},
		{llm.ErrNotConfigured, http.StatusBadGateway},
		{errors.New("UNIQUE constraint failed: report_types.name"), http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
