package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ironsheep/dataset-tools/internal/assemble"
	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/labels"
	"github.com/ironsheep/dataset-tools/internal/split"
)

var (
	splitLabelsDir        string
	splitImagesDir        string
	splitOutDir           string
	splitMinority         []string
	splitTrain            float64
	splitVal              float64
	splitSeed             uint64
	splitIncludeRemaining bool
	splitDryRun           bool
	splitClean            bool
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split minority-class images into train and validation sets",
	Long: `Split the images that contain minority classes into train and validation
sets with the same ratio per class.

An image containing more than one minority class is split in a shared
bucket of its own, so it never appears in both sets. Images are copied with
their label files into <out>/train and <out>/val and a data.yaml is written
when the config names the classes. A non-empty train or val directory is an
error unless --clean is given.

Examples:
  dataset-tools split --labels labels --images JPEGImages --out dataset --minority helmet,vest
  dataset-tools split --labels labels --minority 1,2 --dry-run --json
  dataset-tools split --config dataset.yaml --seed 42 --include-remaining`,
	Args: cobra.NoArgs,
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringVarP(&splitLabelsDir, "labels", "l", "", "Directory of label files")
	splitCmd.Flags().StringVarP(&splitImagesDir, "images", "i", "", "Directory of images")
	splitCmd.Flags().StringVarP(&splitOutDir, "out", "o", "", "Output root for train/ and val/")
	splitCmd.Flags().StringSliceVarP(&splitMinority, "minority", "m", nil, "Minority classes by name or id (e.g., 'helmet,vest')")
	splitCmd.Flags().Float64Var(&splitTrain, "train", 0.7, "Train ratio")
	splitCmd.Flags().Float64Var(&splitVal, "val", 0.2, "Validation ratio")
	splitCmd.Flags().Uint64Var(&splitSeed, "seed", 0, "Shuffle seed (0 picks one and prints it)")
	splitCmd.Flags().BoolVar(&splitIncludeRemaining, "include-remaining", false, "Also split images without minority classes")
	splitCmd.Flags().BoolVar(&splitDryRun, "dry-run", false, "Plan the split without copying files")
	splitCmd.Flags().BoolVar(&splitClean, "clean", false, "Remove existing <out>/train and <out>/val before copying")
}

type splitOutput struct {
	Seed   uint64           `json:"seed"`
	Plan   *assemble.Plan   `json:"plan"`
	Report *assemble.Report `json:"report,omitempty"`
}

// applySplitFlags overlays the flags the user set on the config.
func applySplitFlags(cmd *cobra.Command, cfg *configSplit) {
	flags := cmd.Flags()
	if flags.Changed("train") {
		cfg.ratios.Train = splitTrain
	}
	if flags.Changed("val") {
		cfg.ratios.Val = splitVal
	}
	if flags.Changed("seed") {
		cfg.seed = splitSeed
	}
	if flags.Changed("include-remaining") {
		cfg.includeRemaining = splitIncludeRemaining
	}
	if flags.Changed("minority") {
		cfg.minority = splitMinority
	}
}

// configSplit holds the split settings after flags are applied.
type configSplit struct {
	ratios           split.Ratios
	seed             uint64
	includeRemaining bool
	minority         []string
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings := configSplit{
		ratios:           cfg.Ratios(),
		seed:             cfg.Split.Seed,
		includeRemaining: cfg.Split.IncludeRemaining,
		minority:         cfg.MinorityClasses,
	}
	applySplitFlags(cmd, &settings)
	if err := settings.ratios.Validate(); err != nil {
		return err
	}

	layout := assemble.Layout{
		LabelDir:   firstNonEmpty(splitLabelsDir, cfg.Paths.Labels),
		ImageDir:   firstNonEmpty(splitImagesDir, cfg.Paths.Images),
		OutputDir:  firstNonEmpty(splitOutDir, cfg.Paths.Output),
		Extensions: cfg.ImageExtensions,
		Clean:      splitClean,
	}
	if err := requireFlag("labels", layout.LabelDir); err != nil {
		return err
	}
	if !splitDryRun {
		if err := requireFlag("images", layout.ImageDir); err != nil {
			return err
		}
		if err := requireFlag("out", layout.OutputDir); err != nil {
			return err
		}
	}

	var table *classes.Table
	if len(cfg.Classes) > 0 {
		if table, err = cfg.Table(); err != nil {
			return err
		}
	}
	minority, err := table.Resolve(settings.minority)
	if err != nil {
		return fmt.Errorf("minority classes: %w", err)
	}

	rng, seed := split.NewRand(settings.seed)
	logger.Info("split seed", "seed", seed)

	plan, report, err := assemble.Run(cmd.Context(), assemble.RunOptions{
		Assembler: assemble.Assembler{
			Layout:  layout,
			Table:   table,
			Workers: cfg.Workers,
			Logger:  logger,
		},
		Scan: labels.ScanOptions{
			Include:    cfg.Labels.Include,
			Exclude:    cfg.Labels.Exclude,
			Workers:    cfg.Workers,
			AllowEmpty: cfg.Labels.AllowEmpty,
		},
		Plan: assemble.PlanOptions{
			Minority:         minority,
			Ratios:           settings.ratios,
			Rand:             rng,
			IncludeRemaining: settings.includeRemaining,
		},
		DryRun: splitDryRun,
	})
	if plan == nil {
		return err
	}

	out := &splitOutput{Seed: seed, Plan: plan, Report: report}
	if jsonOutput {
		if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
			return werr
		}
	} else {
		printSplit(cmd.OutOrStdout(), out)
	}
	return err
}

func printSplit(w io.Writer, out *splitOutput) {
	fmt.Fprintf(w, "Seed: %d\n", out.Seed)
	for _, b := range out.Plan.Buckets {
		name := string(b.Kind)
		if b.Class != nil {
			name = fmt.Sprintf("class %d", *b.Class)
		}
		fmt.Fprintf(w, "  %-10s %4d images -> train %d, val %d\n", name, b.Size, len(b.Train), len(b.Validation))
	}
	fmt.Fprintf(w, "Train: %d  Validation: %d  Shared: %d\n",
		len(out.Plan.Train), len(out.Plan.Validation), len(out.Plan.Shared))

	if out.Report == nil {
		return
	}
	fmt.Fprintf(w, "Copied %d train and %d validation images (run %s)\n",
		out.Report.Train, out.Report.Validation, out.Report.RunID)
	for _, m := range out.Report.Missing {
		fmt.Fprintf(w, "  missing: %s\n", m.Error())
	}
	for _, f := range out.Report.Failed {
		fmt.Fprintf(w, "  failed: %s\n", f.Error())
	}
	if out.Report.Manifest != "" {
		fmt.Fprintf(w, "Wrote %s\n", out.Report.Manifest)
	}
}
