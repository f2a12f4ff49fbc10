package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactsSecretKeys(t *testing.T) {
	log, logs := NewObserved()

	log.Info("saved", "endpoint", "https://example", "key", "sk-123", "api_key", "sk-456", "report_type_id", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "https://example", ctx["endpoint"])
	assert.Equal(t, "[REDACTED]", ctx["key"])
	assert.Equal(t, "[REDACTED]", ctx["api_key"])
	assert.EqualValues(t, 3, ctx["report_type_id"])
}

func TestWithCarriesFields(t *testing.T) {
	log, logs := NewObserved()

	log.With("service", "ReportService").Warn("degraded")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ReportService", entries[0].ContextMap()["service"])
}

func TestOddKeyValuesKept(t *testing.T) {
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, sanitizeKVs([]interface{}{"a", 1, "dangling"}))
}
