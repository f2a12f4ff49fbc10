// Package settings persists operator settings edited at runtime, such as
// LLM credentials, as one JSON document.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"reportgen/internal/logger"
)

const sectionOpenAI = "openai"

// OpenAI is the "openai" section of the settings document.
type OpenAI struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Key      string `json:"key" mapstructure:"key"`
}

// Store reads and writes the settings document at one path. Every Save
// rewrites the whole document; the last writer wins.
type Store struct {
	path string
	mu   sync.Mutex
	log  *logger.Logger
}

func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, log: log.With("service", "SettingsStore")}
}

// Load returns the whole document. A missing file is an empty document.
// Keys are lower-cased.
func (s *Store) Load() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.read()
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

// Save replaces the whole document.
func (s *Store) Save(doc map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc)
}

// OpenAI returns the openai section; absent values are empty strings.
func (s *Store) OpenAI() (OpenAI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.read()
	if err != nil {
		return OpenAI{}, err
	}
	var out OpenAI
	if err := v.UnmarshalKey(sectionOpenAI, &out); err != nil {
		return OpenAI{}, fmt.Errorf("decode %s section: %w", sectionOpenAI, err)
	}
	return out, nil
}

// SaveOpenAI replaces the openai section and keeps the rest of the document.
func (s *Store) SaveOpenAI(o OpenAI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.read()
	if err != nil {
		return err
	}
	doc := v.AllSettings()
	doc[sectionOpenAI] = map[string]interface{}{
		"endpoint": o.Endpoint,
		"key":      o.Key,
	}
	if err := s.write(doc); err != nil {
		return err
	}
	s.log.Info("OpenAI settings saved", "endpoint", o.Endpoint, "key", o.Key)
	return nil
}

func (s *Store) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", s.path, err)
	}
	return v, nil
}

func (s *Store) write(doc map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("json")
	for k, val := range doc {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}
