package spawner

import (
	"fmt"
	"os"
	"path/filepath"
)

const Extension = ".awps"

// WithExtension appends .awps when path has no extension of its own.
func WithExtension(path string) string {
	if path == "" || filepath.Ext(path) != "" {
		return path
	}
	return path + Extension
}

// SaveFile writes c to path through a temporary file in the same directory,
// so a failed write never leaves a truncated document behind.
func SaveFile(path string, c Config) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".awps-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// LoadFile reads and parses a .awps document. Parse failures are returned
// as *ParseError.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}
