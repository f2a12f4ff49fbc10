package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportgen/internal/logger"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf", "config.json")
	return NewStore(path, logger.Nop()), path
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, _ := newStore(t)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc)

	o, err := s.OpenAI()
	require.NoError(t, err)
	assert.Equal(t, OpenAI{}, o)
}

func TestSaveOpenAIRoundTrip(t *testing.T) {
	s, path := newStore(t)

	require.NoError(t, s.SaveOpenAI(OpenAI{Endpoint: "https://example.openai.azure.com", Key: "sk-1"}))
	o, err := s.OpenAI()
	require.NoError(t, err)
	assert.Equal(t, OpenAI{Endpoint: "https://example.openai.azure.com", Key: "sk-1"}, o)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"openai":{"endpoint":"https://example.openai.azure.com","key":"sk-1"}}`, string(raw))
}

func TestSaveOpenAIKeepsOtherSections(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(map[string]interface{}{
		"ui":     map[string]interface{}{"theme": "dark"},
		"openai": map[string]interface{}{"endpoint": "old"},
	}))

	require.NoError(t, s.SaveOpenAI(OpenAI{Endpoint: "new", Key: "k"}))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"theme": "dark"}, doc["ui"])
	assert.Equal(t, map[string]interface{}{"endpoint": "new", "key": "k"}, doc["openai"])
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.Load()
	assert.Error(t, err)
}
