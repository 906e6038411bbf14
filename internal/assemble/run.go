package assemble

import (
	"context"
	"log/slog"

	"github.com/ironsheep/dataset-tools/internal/labels"
)

// RunOptions drives Run.
type RunOptions struct {
	Assembler Assembler
	Scan      labels.ScanOptions
	Plan      PlanOptions

	// DryRun stops after planning.
	DryRun bool
}

// Run indexes the label directory, plans the split and, unless DryRun is
// set, materializes it. The report is nil for a dry run.
func Run(ctx context.Context, opts RunOptions) (*Plan, *Report, error) {
	logger := opts.Assembler.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scan := opts.Scan
	if scan.Logger == nil {
		scan.Logger = logger
	}

	records, err := labels.Scan(ctx, opts.Assembler.Layout.LabelDir, scan)
	if err != nil {
		return nil, nil, err
	}

	plan, err := NewPlan(records, opts.Plan)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range plan.Buckets {
		attrs := []any{"kind", b.Kind, "size", b.Size, "train", len(b.Train), "val", len(b.Validation)}
		if b.Class != nil {
			attrs = append(attrs, "class", int(*b.Class))
		}
		logger.Debug("bucket split", attrs...)
	}
	logger.Info("split planned",
		"images", len(records),
		"shared", len(plan.Shared),
		"train", len(plan.Train),
		"val", len(plan.Validation))

	if opts.DryRun {
		return plan, nil, nil
	}
	report, err := opts.Assembler.Materialize(ctx, plan)
	return plan, report, err
}
