package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/labels"
)

// CountDefaultRare is the share below which a class is suggested as
// minority.
const CountDefaultRare = 0.05

var (
	countLabelsDir string
	countRare      float64
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Report the class distribution of a label directory",
	Long: `Count object instances and images per class.

Classes whose share of all instances is below --rare are listed as
candidates for --minority in the split command.`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)

	countCmd.Flags().StringVarP(&countLabelsDir, "labels", "l", "", "Directory of label files")
	countCmd.Flags().Float64Var(&countRare, "rare", CountDefaultRare, "Share of instances below which a class is rare")
}

type countOutput struct {
	*classes.Distribution
	Rare []classes.ClassCount `json:"rare"`
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := firstNonEmpty(countLabelsDir, cfg.Paths.Labels)
	if err := requireFlag("labels", dir); err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}

	records, err := labels.Scan(cmd.Context(), dir, labels.ScanOptions{
		Include:    cfg.Labels.Include,
		Exclude:    cfg.Labels.Exclude,
		Workers:    cfg.Workers,
		AllowEmpty: cfg.Labels.AllowEmpty,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	dist, err := classes.Count(records, table)
	if err != nil {
		return err
	}

	out := &countOutput{Distribution: dist, Rare: dist.Rare(countRare)}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printDistribution(cmd.OutOrStdout(), out)
}

func printDistribution(w io.Writer, out *countOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tINSTANCES\tIMAGES\tSHARE")
	for _, c := range out.Classes {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.2f%%\n", c.ID, c.Name, c.Instances, c.Images, c.Share*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d instances in %d images (mean %.1f, std dev %.1f per class)\n",
		out.Total, out.Images, out.Mean, out.StdDev)
	if out.Imbalance > 0 {
		fmt.Fprintf(w, "Imbalance (largest/smallest non-empty class): %.1f\n", out.Imbalance)
	}

	if len(out.Rare) > 0 {
		names := make([]string, 0, len(out.Rare))
		for _, c := range out.Rare {
			names = append(names, c.Name)
		}
		fmt.Fprintf(w, "Suggested minority classes: --minority %s\n", strings.Join(names, ","))
	}
	return nil
}
