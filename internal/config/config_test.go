package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/dataset-tools/internal/labels"
	"github.com/ironsheep/dataset-tools/internal/split"
)

const sample = `
classes:
  head: 0
  helmet: 1
  person: 2
minority_classes: [head, "2"]
split:
  train_ratio: 0.8
  val_ratio: 0.1
  seed: 1234
paths:
  labels: data/labels
  images: data/images
  output: data/out
workers: 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, split.Ratios{Train: 0.8, Val: 0.1}, cfg.Ratios())
	assert.Equal(t, uint64(1234), cfg.Split.Seed)
	assert.Equal(t, "data/labels", cfg.Paths.Labels)
	assert.Equal(t, 4, cfg.Workers)

	// defaults survive for omitted keys
	assert.Equal(t, []string{".png", ".jpg", ".jpeg"}, cfg.ImageExtensions)
	assert.Equal(t, "info", cfg.Logging.Level)

	table, err := cfg.Table()
	require.NoError(t, err)
	ids, err := cfg.Minority(table)
	require.NoError(t, err)
	assert.Equal(t, []labels.ClassID{0, 2}, ids)
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "split:\n  train: 0.5\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{"bad ratio", func(c *Config) { c.Split.TrainRatio = 0.95 }, split.ErrInvalidRatio},
		{"negative workers", func(c *Config) { c.Workers = -1 }, nil},
		{"extension without dot", func(c *Config) { c.ImageExtensions = []string{"png"} }, nil},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, nil},
		{"unknown minority", func(c *Config) {
			c.Classes = map[string]int{"a": 0}
			c.MinorityClasses = []string{"b"}
		}, nil},
		{"duplicate ids", func(c *Config) { c.Classes = map[string]int{"a": 0, "b": 0} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestTable_NoClasses(t *testing.T) {
	_, err := Defaults().Table()
	assert.Error(t, err)
}
