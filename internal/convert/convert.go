package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/imaging"
	"github.com/ironsheep/dataset-tools/internal/labels"
)

// ErrNoImageSize indicates an annotation without a usable <size> and no
// way to read the size from the image.
var ErrNoImageSize = errors.New("annotation has no image size")

// ParseError reports an annotation file that could not be converted.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// DimensionProber supplies image sizes for annotations that lack one.
type DimensionProber interface {
	Dimensions(path string) (imaging.Dimensions, error)
}

// Options configures a conversion.
type Options struct {
	Table *classes.Table

	// ImageDir and Prober enable the size fallback. Both must be set.
	ImageDir   string
	Prober     DimensionProber
	Extensions []string

	// Workers bounds parallel conversion in ConvertDir.
	Workers int

	Logger *slog.Logger
}

// Boxes converts an annotation into normalized boxes.
func Boxes(a *Annotation, width, height int, table *classes.Table) ([]labels.Box, error) {
	boxes := make([]labels.Box, 0, len(a.Objects))
	for i, obj := range a.Objects {
		name := strings.TrimSpace(obj.Name)
		id, ok := table.ID(name)
		if !ok {
			return nil, fmt.Errorf("object %d: %w: %q", i, classes.ErrUnknownClass, name)
		}
		xmin, ymin, xmax, ymax, err := obj.Bounds()
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		b, err := labels.Normalize(id, xmin, ymin, xmax, ymax, width, height)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// Format renders boxes as label file content.
func Format(boxes []labels.Box) []byte {
	var buf bytes.Buffer
	for _, b := range boxes {
		buf.WriteString(b.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ConvertFile converts the annotation at xmlPath and writes
// <outDir>/<stem>.txt. It returns the written path.
func ConvertFile(xmlPath, outDir string, opts Options) (string, error) {
	if opts.Table == nil {
		return "", errors.New("convert: no class table")
	}
	a, err := DecodeFile(xmlPath)
	if err != nil {
		return "", &ParseError{Path: xmlPath, Err: err}
	}

	stem := string(labels.KeyFor(xmlPath))
	w, h, ok, err := a.ImageSize()
	if err != nil {
		return "", &ParseError{Path: xmlPath, Err: err}
	}
	if !ok {
		w, h, err = probeSize(stem, opts)
		if err != nil {
			return "", &ParseError{Path: xmlPath, Err: err}
		}
	}

	boxes, err := Boxes(a, w, h, opts.Table)
	if err != nil {
		return "", &ParseError{Path: xmlPath, Err: err}
	}

	out := filepath.Join(outDir, stem+labels.Ext)
	if err := writeAtomic(out, Format(boxes)); err != nil {
		return "", err
	}
	return out, nil
}

func probeSize(stem string, opts Options) (int, int, error) {
	if opts.Prober == nil || opts.ImageDir == "" {
		return 0, 0, ErrNoImageSize
	}
	p, err := imaging.FindImage(opts.ImageDir, stem, opts.Extensions)
	if err != nil {
		return 0, 0, errors.Join(ErrNoImageSize, err)
	}
	d, err := opts.Prober.Dimensions(p)
	if err != nil {
		return 0, 0, errors.Join(ErrNoImageSize, err)
	}
	return d.Width, d.Height, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create label file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write label file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to write label file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to write label file: %w", err)
	}
	return nil
}

// Result summarizes a directory conversion.
type Result struct {
	Converted int      `json:"converted"`
	Files     []string `json:"files"`
}

// ConvertDir converts every *.xml file in inDir into outDir, creating outDir
// if needed. All files are attempted; failures are joined in path order.
func ConvertDir(ctx context.Context, inDir, outDir string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			paths = append(paths, filepath.Join(inDir, e.Name()))
		}
	}
	sort.Strings(paths)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	written := make([]string, len(paths))
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := ConvertFile(p, outDir, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			written[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, w := range written {
		if w != "" {
			res.Files = append(res.Files, w)
		}
	}
	res.Converted = len(res.Files)
	logger.Info("converted annotations", "in", inDir, "out", outDir, "converted", res.Converted, "total", len(paths))

	if err := errors.Join(errs...); err != nil {
		return res, err
	}
	return res, nil
}
