// Package config loads rbfsurf settings from HJSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chazu/rbfsurf/pkg/logging"
	"github.com/chazu/rbfsurf/pkg/sample"
	"github.com/chazu/rbfsurf/pkg/tessellate"
	"github.com/hjson/hjson-go"
)

// SampleConfig controls training sample generation.
type SampleConfig struct {
	sample.Config
	Adaptive     bool    `json:"adaptive"`
	SpacingScale float64 `json:"spacing-scale"`
}

// SolveConfig controls the RBF least-squares solve.
type SolveConfig struct {
	Workers int     `json:"workers"`
	Cutoff  float64 `json:"cutoff"`
}

// MeshConfig controls isosurface extraction.
type MeshConfig struct {
	Cells      int     `json:"cells"`
	Octree     bool    `json:"octree"`
	Padding    float64 `json:"padding"`
	MinPadding float64 `json:"min-padding"`
}

// ScriptConfig controls scene script evaluation.
type ScriptConfig struct {
	TimeoutSeconds float64 `json:"timeout-seconds"`
	ScanCells      int     `json:"scan-cells"`
	ScanMaxPoints  int     `json:"scan-max-points"`
}

// Timeout returns the evaluation limit as a duration.
func (s ScriptConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds * float64(time.Second))
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// StoreConfig locates the model database. An empty path disables it.
type StoreConfig struct {
	Path string `json:"path"`
}

// Config is the full rbfsurf configuration, one field per HJSON section.
type Config struct {
	Sample SampleConfig `json:"sample"`
	Solve  SolveConfig  `json:"solve"`
	Mesh   MeshConfig   `json:"mesh"`
	Script ScriptConfig `json:"script"`
	Log    LogConfig    `json:"log"`
	Store  StoreConfig  `json:"store"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sample: SampleConfig{
			Config:       sample.DefaultConfig(),
			SpacingScale: sample.DefaultSpacingScale,
		},
		Mesh: MeshConfig{
			Cells:      64,
			Padding:    tessellate.DefaultPadding,
			MinPadding: tessellate.DefaultMinPadding,
		},
		Script: ScriptConfig{
			TimeoutSeconds: 30,
			ScanCells:      48,
			ScanMaxPoints:  500,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads an HJSON file over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	conf, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// Parse decodes HJSON over the defaults and validates the result. Keys
// absent from data keep their default values.
func Parse(data []byte) (Config, error) {
	conf := Default()

	var mdat map[string]interface{}
	if err := hjson.Unmarshal(data, &mdat); err != nil {
		return Config{}, err
	}
	bytes, err := json.Marshal(mdat)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(bytes, &conf); err != nil {
		return Config{}, err
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if err := c.Sample.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Sample.SpacingScale < 0 {
		errs = append(errs, fmt.Errorf("sample.spacing-scale must not be negative"))
	}
	if c.Solve.Workers < 0 {
		errs = append(errs, fmt.Errorf("solve.workers must not be negative"))
	}
	if c.Solve.Cutoff < 0 || c.Solve.Cutoff >= 1 {
		errs = append(errs, fmt.Errorf("solve.cutoff must be in [0, 1), got %g", c.Solve.Cutoff))
	}
	if c.Mesh.Cells < 2 {
		errs = append(errs, fmt.Errorf("mesh.cells must be at least 2, got %d", c.Mesh.Cells))
	}
	if c.Mesh.Padding < 0 || c.Mesh.MinPadding < 0 {
		errs = append(errs, fmt.Errorf("mesh padding must not be negative"))
	}
	if c.Script.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("script.timeout-seconds must be positive"))
	}
	if c.Script.ScanCells < 2 || c.Script.ScanMaxPoints < 1 {
		errs = append(errs, fmt.Errorf("script scan defaults must be positive"))
	}
	if _, err := logging.FromConfig(c.Log.Level, c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TessellateOptions returns the mesh padding as tessellate options.
func (c Config) TessellateOptions(name string) tessellate.Options {
	return tessellate.Options{
		Padding:    c.Mesh.Padding,
		MinPadding: c.Mesh.MinPadding,
		Name:       name,
	}
}
