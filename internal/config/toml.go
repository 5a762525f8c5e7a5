package config

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Loader reads settings from TOML files.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load reads settings from the configured path. A missing file is not
// an error; defaults are returned.
func (l *Loader) Load() (Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading settings file %s: %w", l.path, err)
	}
	return l.parse(l.path, data)
}

// LoadFromReader reads settings from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading settings: %w", err)
	}
	return l.parse("<reader>", data)
}

// parse decodes TOML over defaults, fills gaps for sparse files, and
// validates the result.
func (l *Loader) parse(source string, data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
	}
	cfg = cfg.merged()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("settings file %s: %w", source, err)
	}
	return cfg, nil
}
