package printer

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultBrightness is used when no settings were saved yet
const DefaultBrightness = 80

// storedSettings is the on-disk layout
type storedSettings struct {
	Brightness uint8 `yaml:"brightness"`
}

// FileSettings keeps the settings in a YAML file. An empty path keeps them in
// memory only.
type FileSettings struct {
	mu     sync.Mutex
	path   string
	values storedSettings
}

// LoadSettings reads path, starting from defaults when it does not exist
func LoadSettings(path string) (*FileSettings, error) {
	s := &FileSettings{
		path:   path,
		values: storedSettings{Brightness: DefaultBrightness},
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("no saved settings, using defaults")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if s.values.Brightness == 0 || s.values.Brightness > 100 {
		s.values.Brightness = DefaultBrightness
	}
	return s, nil
}

// Brightness returns the backlight level in percent
func (s *FileSettings) Brightness() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Brightness
}

// SetBrightness changes the backlight level, clamped to 1-100
func (s *FileSettings) SetBrightness(percent uint8) {
	if percent == 0 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	s.values.Brightness = percent
	s.mu.Unlock()
}

// Save writes the settings to disk
func (s *FileSettings) Save() error {
	s.mu.Lock()
	values := s.values
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(&values)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	log.Debug().Str("path", s.path).Msg("settings saved")
	return nil
}
