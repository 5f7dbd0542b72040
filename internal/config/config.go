package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/gosched/internal/logging"
	"github.com/me/gosched/internal/report"
	"github.com/me/gosched/pkg/model"
)

// SimConfig holds configuration for a simulation run.
type SimConfig struct {
	Cores     int    `yaml:"cores"`      // Number of cores (default 1)
	Scheme    string `yaml:"scheme"`     // Scheduling discipline name or alias
	Quantum   int    `yaml:"quantum"`    // RR time slice in ticks
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
	Output    string `yaml:"output"`     // Report format: text, json, yaml
	Gantt     bool   `yaml:"gantt"`      // Include a Gantt chart in text reports
}

// DefaultSimConfig returns sensible defaults. GOSCHED_LOG_LEVEL, if set,
// replaces the default log level.
func DefaultSimConfig() SimConfig {
	level := "warn"
	if l := os.Getenv("GOSCHED_LOG_LEVEL"); l != "" {
		level = l
	}
	return SimConfig{
		Cores:     1,
		Scheme:    string(model.DisciplineFCFS),
		Quantum:   2,
		LogLevel:  level,
		LogFormat: "text",
		Output:    string(report.FormatText),
	}
}

// LoadFile overlays the YAML file at path onto base. Keys absent from the
// file keep their base values.
func LoadFile(path string, base SimConfig) (SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Discipline returns the parsed scheduling discipline.
func (c SimConfig) Discipline() (model.Discipline, error) {
	return model.ParseDiscipline(c.Scheme)
}

// Validate checks the configuration and reports every problem found.
func (c SimConfig) Validate() error {
	var details []model.FieldError
	if c.Cores < 1 {
		details = append(details, model.FieldError{Field: "cores", Message: fmt.Sprintf("must be at least 1, got %d", c.Cores)})
	}
	d, err := c.Discipline()
	if err != nil {
		details = append(details, model.FieldError{Field: "scheme", Message: err.Error()})
	}
	if d == model.DisciplineRR && c.Quantum < 1 {
		details = append(details, model.FieldError{Field: "quantum", Message: fmt.Sprintf("must be at least 1 for RR, got %d", c.Quantum)})
	}
	if err := logging.ValidateFormat(c.LogFormat); err != nil {
		details = append(details, model.FieldError{Field: "log_format", Message: err.Error()})
	}
	if _, err := report.ParseFormat(c.Output); err != nil {
		details = append(details, model.FieldError{Field: "output", Message: err.Error()})
	}
	if len(details) > 0 {
		return model.NewValidationError("invalid simulation config", details...)
	}
	return nil
}
