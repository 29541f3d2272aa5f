// Package jsonfile reads and writes the whole-file JSON documents the lab
// configuration lives in.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Reason tells why a config file could not be used.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonCorrupt Reason = "corrupt"
)

// LoadError reports that defaults were used in place of a config file.
type LoadError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s config %s, using defaults: %v", e.Reason, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsMissing reports whether err is a LoadError for an absent file.
func IsMissing(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Reason == ReasonMissing
}

// IsCorrupt reports whether err is a LoadError for an unreadable file.
func IsCorrupt(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Reason == ReasonCorrupt
}

// Read decodes path into v. Any failure comes back as a *LoadError.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadError{Path: path, Reason: ReasonMissing, Err: err}
		}
		return &LoadError{Path: path, Reason: ReasonCorrupt, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &LoadError{Path: path, Reason: ReasonCorrupt, Err: err}
	}
	return nil
}

// Write overwrites path with the indented JSON encoding of v.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
