package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/dataset-tools/internal/config"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(EnvLogLevel, "")
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// resetFlags restores flag variables between executions, since cobra keeps
// them in package state.
func resetFlags() {
	configPath, verbose, jsonOutput = "", false, false
	convertXMLDir, convertOutDir, convertImagesDir = "", "", ""
	countLabelsDir, countRare = "", CountDefaultRare
	splitLabelsDir, splitImagesDir, splitOutDir = "", "", ""
	splitMinority = nil
	splitTrain, splitVal, splitSeed = 0.7, 0.2, 0
	splitIncludeRemaining, splitDryRun, splitClean = false, false, false

	unset := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(unset)
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(unset)
	}
}

// writeFixture lays out labels/, images/ and a config naming two classes.
func writeFixture(t *testing.T, n int) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	for _, d := range []string{"labels", "images"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("img%02d", i)
		line := "0 0.5 0.5 0.2 0.2\n"
		if i%5 == 0 {
			line += "1 0.3 0.3 0.1 0.1\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(root, "labels", key+".txt"), []byte(line), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "images", key+".jpg"), []byte(key), 0o644))
	}

	cfgPath = filepath.Join(root, "dataset.yaml")
	cfg := "classes:\n  head: 0\n  helmet: 1\n  vest: 2\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return root, cfgPath
}

func TestRootCmd_Definition(t *testing.T) {
	t.Run("has subcommands", func(t *testing.T) {
		found := map[string]bool{}
		for _, cmd := range rootCmd.Commands() {
			found[cmd.Name()] = true
		}
		for _, name := range []string{"convert", "count", "split", "serve", "version"} {
			assert.True(t, found[name], "%s subcommand should exist", name)
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		pflags := rootCmd.PersistentFlags()
		require.NotNil(t, pflags.Lookup("config"))
		require.NotNil(t, pflags.Lookup("json"))
		verboseFlag := pflags.Lookup("verbose")
		require.NotNil(t, verboseFlag)
		assert.Equal(t, "v", verboseFlag.Shorthand)
	})

	t.Run("split defaults", func(t *testing.T) {
		assert.Equal(t, "0.7", splitCmd.Flags().Lookup("train").DefValue)
		assert.Equal(t, "0.2", splitCmd.Flags().Lookup("val").DefValue)
		assert.Equal(t, "0", splitCmd.Flags().Lookup("seed").DefValue)
	})
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dataset-tools "+Version)
	assert.Contains(t, out, "Git commit:")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARN").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}

func TestCountCmd(t *testing.T) {
	root, cfgPath := writeFixture(t, 10)

	out, err := execute(t, "count", "--config", cfgPath, "--labels", filepath.Join(root, "labels"), "--rare", "0.2", "--json")
	require.NoError(t, err)

	var got struct {
		Total int `json:"total_instances"`
		Rare  []struct {
			Name string `json:"name"`
		} `json:"rare"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 12, got.Total)
	require.Len(t, got.Rare, 2)
	assert.Equal(t, "vest", got.Rare[0].Name)
	assert.Equal(t, "helmet", got.Rare[1].Name)
}

func TestCountCmd_RequiresClasses(t *testing.T) {
	root, _ := writeFixture(t, 2)
	_, err := execute(t, "count", "--labels", filepath.Join(root, "labels"))
	assert.Error(t, err)
}

func TestSplitCmd(t *testing.T) {
	root, cfgPath := writeFixture(t, 20)
	outDir := filepath.Join(root, "dataset")

	out, err := execute(t, "split",
		"--config", cfgPath,
		"--labels", filepath.Join(root, "labels"),
		"--images", filepath.Join(root, "images"),
		"--out", outDir,
		"--minority", "head,helmet",
		"--seed", "42",
		"--json")
	require.NoError(t, err)

	var got splitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, uint64(42), got.Seed)
	// img00, img05, img10 and img15 carry both classes.
	assert.Len(t, got.Plan.Shared, 4)
	require.NotNil(t, got.Report)
	assert.Equal(t, len(got.Plan.Train), got.Report.Train)
	assert.Equal(t, len(got.Plan.Validation), got.Report.Validation)
	assert.Empty(t, got.Report.Missing)

	assert.FileExists(t, filepath.Join(outDir, "data.yaml"))
	for _, key := range got.Plan.Train {
		assert.FileExists(t, filepath.Join(outDir, "train", string(key)+".jpg"))
		assert.FileExists(t, filepath.Join(outDir, "train", string(key)+".txt"))
	}
}

func TestSplitCmd_UnknownMinority(t *testing.T) {
	root, cfgPath := writeFixture(t, 2)
	_, err := execute(t, "split", "--config", cfgPath, "--labels", filepath.Join(root, "labels"), "--minority", "boots", "--dry-run")
	assert.Error(t, err)
}

func TestSplitCmd_RerunNeedsClean(t *testing.T) {
	root, cfgPath := writeFixture(t, 10)
	args := []string{"split",
		"--config", cfgPath,
		"--labels", filepath.Join(root, "labels"),
		"--images", filepath.Join(root, "images"),
		"--out", filepath.Join(root, "dataset"),
		"--minority", "head",
		"--seed", "3",
	}

	_, err := execute(t, args...)
	require.NoError(t, err)

	_, err = execute(t, args...)
	assert.ErrorContains(t, err, "not empty")

	_, err = execute(t, append(args, "--clean")...)
	assert.NoError(t, err)
}

func TestSplitCmd_InvalidConfig(t *testing.T) {
	root, _ := writeFixture(t, 2)
	cfgPath := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: loud\n"), 0o644))

	_, err := execute(t, "split", "--config", cfgPath, "--labels", filepath.Join(root, "labels"), "--minority", "0", "--dry-run")
	assert.ErrorContains(t, err, "logging.level")
}
