package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// calibrationFile is the on-disk shape of a calibration document. Caps and
// solve-bound overrides ride along so one file configures a whole run.
type calibrationFile struct {
	Calibration `yaml:",inline"`
	Caps        *Caps        `yaml:"caps,omitempty"`
	Bounds      *SolveBounds `yaml:"bounds,omitempty"`
}

// LoadResult is a fully validated configuration loaded from a file.
type LoadResult struct {
	Calibration  Calibration
	CapsOverride Caps
	Bounds       SolveBounds
}

// LoadCalibration reads and strictly decodes a calibration YAML document.
// Unknown fields are a validation failure, not a warning: a typo in a
// coefficient name must never silently fall back to a default.
func LoadCalibration(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("read calibration file: %w", err)
	}
	return ParseCalibration(data)
}

// ParseCalibration strictly decodes calibration YAML from memory.
func ParseCalibration(data []byte) (LoadResult, error) {
	doc := calibrationFile{Calibration: DefaultCalibration()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return LoadResult{}, fmt.Errorf("decode calibration: %w", err)
	}
	if err := doc.Calibration.Validate(); err != nil {
		return LoadResult{}, err
	}

	out := LoadResult{Calibration: doc.Calibration}
	if doc.Caps != nil {
		out.CapsOverride = *doc.Caps
	}
	if doc.Bounds != nil {
		out.Bounds = *doc.Bounds
	}
	return out, nil
}
