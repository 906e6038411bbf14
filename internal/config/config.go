// Package config loads the dataset-tools YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/labels"
	"github.com/ironsheep/dataset-tools/internal/split"
)

// EnvConfigFile names the config file when --config is not given.
const EnvConfigFile = "DATASET_TOOLS_CONFIG"

// Config is the file-level configuration shared by every command. Flags
// override the values they name.
type Config struct {
	// Classes maps each class name to its id.
	Classes map[string]int `yaml:"classes"`

	// MinorityClasses lists class names or ids to split separately.
	MinorityClasses []string `yaml:"minority_classes"`

	Split   SplitConfig   `yaml:"split"`
	Paths   PathsConfig   `yaml:"paths"`
	Labels  LabelsConfig  `yaml:"labels"`
	Logging LoggingConfig `yaml:"logging"`

	ImageExtensions []string `yaml:"image_extensions"`
	Workers         int      `yaml:"workers"`
}

// SplitConfig sets the ratios and shuffle of the split command.
type SplitConfig struct {
	TrainRatio float64 `yaml:"train_ratio"`
	ValRatio   float64 `yaml:"val_ratio"`

	// Seed fixes the shuffle. Zero picks a seed from the clock.
	Seed uint64 `yaml:"seed"`

	IncludeRemaining bool `yaml:"include_remaining"`
}

// PathsConfig holds default directories for the --xml, --labels, --images
// and --out flags.
type PathsConfig struct {
	Annotations string `yaml:"annotations"`
	Labels      string `yaml:"labels"`
	Images      string `yaml:"images"`
	Output      string `yaml:"output"`
}

// LabelsConfig selects and parses label files.
type LabelsConfig struct {
	Include    []string `yaml:"include"`
	Exclude    []string `yaml:"exclude"`
	AllowEmpty bool     `yaml:"allow_empty"`
}

// LoggingConfig sets the log level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Split: SplitConfig{
			TrainRatio: 0.7,
			ValRatio:   0.2,
		},
		Labels: LabelsConfig{
			Include: []string{labels.DefaultPattern},
		},
		Logging:         LoggingConfig{Level: "info"},
		ImageExtensions: []string{".png", ".jpg", ".jpeg"},
	}
}

// Load reads path over Defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document omits.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Ratios returns the configured split ratios.
func (c Config) Ratios() split.Ratios {
	return split.Ratios{Train: c.Split.TrainRatio, Val: c.Split.ValRatio}
}

// Table builds the class table.
func (c Config) Table() (*classes.Table, error) {
	if len(c.Classes) == 0 {
		return nil, errors.New("no classes configured")
	}
	return classes.NewTable(c.Classes)
}

// Minority resolves MinorityClasses against table.
func (c Config) Minority(table *classes.Table) ([]labels.ClassID, error) {
	return table.Resolve(c.MinorityClasses)
}

// Validate checks the parts of the configuration every command relies on.
func (c Config) Validate() error {
	var errs []error
	if err := c.Ratios().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must be >= 0, got %d", c.Workers))
	}
	for _, ext := range c.ImageExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("image_extensions: %q must start with '.'", ext))
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if len(c.Classes) > 0 {
		table, err := c.Table()
		if err != nil {
			errs = append(errs, err)
		} else if _, err := c.Minority(table); err != nil {
			errs = append(errs, fmt.Errorf("minority_classes: %w", err))
		}
	}
	return errors.Join(errs...)
}
