package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/dataset-tools/internal/convert"
	"github.com/ironsheep/dataset-tools/internal/imaging"
)

var (
	convertXMLDir    string
	convertOutDir    string
	convertImagesDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert Pascal VOC XML annotations to label files",
	Long: `Convert every .xml annotation in a directory to a normalized label file.

Class names are mapped to ids through the "classes" table of the config
file. When an annotation has no usable <size>, --images lets the converter
read the dimensions from the matching image instead.`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertXMLDir, "xml", "", "Directory of VOC XML annotations")
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "Directory for the label files")
	convertCmd.Flags().StringVar(&convertImagesDir, "images", "", "Image directory used when an annotation lacks its size")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	in := firstNonEmpty(convertXMLDir, cfg.Paths.Annotations)
	out := firstNonEmpty(convertOutDir, cfg.Paths.Labels)
	if err := requireFlag("xml", in); err != nil {
		return err
	}
	if err := requireFlag("out", out); err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}

	opts := convert.Options{
		Table:      table,
		Extensions: cfg.ImageExtensions,
		Workers:    cfg.Workers,
		Logger:     logger,
	}
	if images := firstNonEmpty(convertImagesDir, cfg.Paths.Images); images != "" {
		opts.ImageDir = images
		opts.Prober = imaging.NewDimensionCache(imaging.DefaultCacheSize)
	}

	res, convErr := convert.ConvertDir(cmd.Context(), in, out, opts)
	if res != nil {
		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d annotations into %s\n", res.Converted, out)
		}
	}
	return convErr
}
