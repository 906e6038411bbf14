package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/dataset-tools/internal/config"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "DATASET_TOOLS_LOG_LEVEL"

var (
	configPath string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "dataset-tools",
	Short: "Minority-aware train/validation splitter for detection datasets",
	Long: `dataset-tools prepares object-detection datasets for training.

It converts Pascal VOC annotations to normalized label files, reports the
class distribution and splits images into train and validation sets so that
rare classes are represented in both and no image lands in both.

Examples:
  dataset-tools convert --xml Annotations --out labels --config classes.yaml
  dataset-tools count --labels labels --config classes.yaml
  dataset-tools split --labels labels --images JPEGImages --out dataset --minority helmet --seed 42
  dataset-tools serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}

// Execute runs the root command with SIGINT and SIGTERM wired into the
// command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads --config, then $DATASET_TOOLS_CONFIG, and falls back to
// the defaults when neither is set.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

// newLogger builds the stderr logger. stdout is reserved for results and
// for the MCP protocol.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}
	if verbose {
		level = "debug"
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setup loads and validates the config and builds the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	return cfg, logger, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// firstNonEmpty returns the flag value when set and the config value
// otherwise.
func firstNonEmpty(flag, fromConfig string) string {
	if flag != "" {
		return flag
	}
	return fromConfig
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required (or set it in the config file)", name)
	}
	return nil
}
