package labels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

// DefaultPattern selects label files when ScanOptions.Include is empty.
const DefaultPattern = "*" + Ext

// ErrInvalidPattern indicates a glob pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// ScanOptions controls which files Scan reads and how.
type ScanOptions struct {
	// Include patterns are matched against base names. Default "*.txt".
	Include []string
	Exclude []string

	// Workers bounds parallel parsing. Zero means runtime.NumCPU().
	Workers int

	// AllowEmpty accepts label files without object lines as images with
	// no classes instead of failing them.
	AllowEmpty bool

	Logger *slog.Logger
}

// Scan reads every matching label file in dir (non-recursive) and returns
// one Record per file, ordered by key. All parse failures are joined into
// the returned error, sorted by path.
func Scan(ctx context.Context, dir string, opts ScanOptions) ([]Record, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	include := opts.Include
	if len(include) == 0 {
		include = []string{DefaultPattern}
	}
	inc, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read label directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !matchAny(inc, name) || matchAny(exc, name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	records := make([]Record, len(paths))
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
			rec, err := ReadRecord(p, opts.AllowEmpty)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	logger.Debug("scanned label directory", "dir", dir, "files", len(records))
	return records, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

func matchAny(matchers []glob.Glob, name string) bool {
	for _, m := range matchers {
		if m.Match(name) {
			return true
		}
	}
	return false
}
