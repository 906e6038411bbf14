package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/imaging"
	"github.com/ironsheep/dataset-tools/internal/labels"
)

// Output subdirectories of a materialized dataset.
const (
	TrainDir = "train"
	ValDir   = "val"
)

// ErrOutputNotEmpty indicates a train or val directory that already holds
// files from an earlier run.
var ErrOutputNotEmpty = errors.New("output directory is not empty")

// MissingFileError reports a planned key whose image or label is absent.
type MissingFileError struct {
	Key  labels.ImageKey `json:"key"`
	Path string          `json:"path"`
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file not found: %s (image %s)", e.Path, e.Key)
}

// CopyError reports a key whose files could not be copied.
type CopyError struct {
	Key labels.ImageKey `json:"key"`
	Err error           `json:"-"`
}

func (e *CopyError) Error() string { return fmt.Sprintf("copy %s: %v", e.Key, e.Err) }

func (e *CopyError) Unwrap() error { return e.Err }

// Layout locates the source directories and the output root.
type Layout struct {
	ImageDir  string
	LabelDir  string
	OutputDir string

	// Extensions are tried in order to find an image by key.
	Extensions []string

	// Clean removes existing train and val directories before copying.
	// Without it Materialize refuses to write into a non-empty one, since
	// leftovers from another plan could put one image in both sets.
	Clean bool
}

// Assembler copies planned images into an output layout.
type Assembler struct {
	Layout Layout

	// Table names classes in data.yaml. Without it no manifest is written.
	Table *classes.Table

	// Workers bounds parallel copies. Zero means runtime.NumCPU().
	Workers int

	Logger *slog.Logger
}

// Report summarizes a Materialize call.
type Report struct {
	RunID      string              `json:"run_id"`
	Train      int                 `json:"train_copied"`
	Validation int                 `json:"val_copied"`
	Missing    []*MissingFileError `json:"missing,omitempty"`
	Failed     []*CopyError        `json:"failed,omitempty"`
	Manifest   string              `json:"manifest,omitempty"`
}

type copyJob struct {
	key labels.ImageKey
	set string
}

// Materialize copies the plan's train and validation images with their
// labels. Missing and failed keys are collected in the report and do not stop
// the batch. Only context cancellation or an unusable output directory
// returns an error.
func (a *Assembler) Materialize(ctx context.Context, plan *Plan) (*Report, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := &Report{RunID: uuid.NewString()}
	logger = logger.With("run_id", report.RunID)

	if err := a.prepareOutput(); err != nil {
		return nil, err
	}

	jobs := make([]copyJob, 0, len(plan.Train)+len(plan.Validation))
	for _, k := range plan.Train {
		jobs = append(jobs, copyJob{key: k, set: TrainDir})
	}
	for _, k := range plan.Validation {
		jobs = append(jobs, copyJob{key: k, set: ValDir})
	}

	workers := a.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := a.copyOne(job)

			mu.Lock()
			defer mu.Unlock()
			var missing *MissingFileError
			switch {
			case err == nil:
				if job.set == TrainDir {
					report.Train++
				} else {
					report.Validation++
				}
			case errors.As(err, &missing):
				logger.Warn("file not found, skipping", "key", missing.Key, "path", missing.Path)
				report.Missing = append(report.Missing, missing)
			default:
				logger.Error("copy failed", "key", job.key, "error", err)
				report.Failed = append(report.Failed, &CopyError{Key: job.key, Err: err})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	sortReport(report)

	if a.Table != nil {
		path, err := WriteManifest(a.Layout.OutputDir, a.Table)
		if err != nil {
			return report, err
		}
		report.Manifest = path
	}

	logger.Info("dataset assembled",
		"out", a.Layout.OutputDir,
		"train", report.Train,
		"val", report.Validation,
		"missing", len(report.Missing),
		"failed", len(report.Failed))
	return report, nil
}

// prepareOutput creates the train and val directories. Existing ones are
// removed when Layout.Clean is set and must be empty otherwise.
func (a *Assembler) prepareOutput() error {
	dirs := []string{
		filepath.Join(a.Layout.OutputDir, TrainDir),
		filepath.Join(a.Layout.OutputDir, ValDir),
	}
	for _, dir := range dirs {
		if a.Layout.Clean {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("failed to clean output directory: %w", err)
			}
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read output directory: %w", err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s (use clean to replace it)", ErrOutputNotEmpty, dir)
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

// copyOne copies the image and label for one key. Both sources are checked
// before anything is written, and the image is removed again if the label
// cannot be copied, so a key is either complete in dst or absent.
func (a *Assembler) copyOne(job copyJob) error {
	img, err := imaging.FindImage(a.Layout.ImageDir, string(job.key), a.Layout.Extensions)
	if err != nil {
		return &MissingFileError{Key: job.key, Path: filepath.Join(a.Layout.ImageDir, string(job.key))}
	}
	lbl := filepath.Join(a.Layout.LabelDir, string(job.key)+labels.Ext)
	if fi, err := os.Stat(lbl); err != nil || !fi.Mode().IsRegular() {
		return &MissingFileError{Key: job.key, Path: lbl}
	}

	dst := filepath.Join(a.Layout.OutputDir, job.set)
	imgDst := filepath.Join(dst, filepath.Base(img))
	if err := copyFile(img, imgDst); err != nil {
		os.Remove(imgDst)
		return err
	}
	if err := copyFile(lbl, filepath.Join(dst, filepath.Base(lbl))); err != nil {
		os.Remove(imgDst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
