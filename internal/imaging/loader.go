package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds a DimensionCache created with size <= 0.
const DefaultCacheSize = 1024

// DefaultExtensions are tried in order when looking up an image by stem.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg"}

// ErrImageNotFound indicates no image exists for a stem.
var ErrImageNotFound = errors.New("image not found")

// Dimensions is an image's displayed size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DimensionCache caches image dimensions by path.
//
// Only the size is kept, never the pixels, so entries are small. Different
// spellings of one path are cached separately.
type DimensionCache struct {
	entries *lru.Cache[string, Dimensions]
}

// NewDimensionCache creates a cache holding up to size entries.
func NewDimensionCache(size int) *DimensionCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[string, Dimensions](size)
	return &DimensionCache{entries: c}
}

// Dimensions returns the size of the image at path, opening it on a miss.
func (c *DimensionCache) Dimensions(path string) (Dimensions, error) {
	if d, ok := c.entries.Get(path); ok {
		return d, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to open image: %w", err)
	}

	b := img.Bounds()
	d := Dimensions{Width: b.Dx(), Height: b.Dy()}
	c.entries.Add(path, d)
	return d, nil
}

// Len returns the number of cached entries.
func (c *DimensionCache) Len() int { return c.entries.Len() }

// Evict removes path from the cache.
func (c *DimensionCache) Evict(path string) { c.entries.Remove(path) }

// Clear empties the cache.
func (c *DimensionCache) Clear() { c.entries.Purge() }

// FindImage returns the first existing <dir>/<stem><ext> over exts, or
// ErrImageNotFound. Extensions are also tried upper-cased.
func FindImage(dir, stem string, exts []string) (string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		for _, e := range []string{ext, strings.ToUpper(ext)} {
			p := filepath.Join(dir, stem+e)
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrImageNotFound, filepath.Join(dir, stem))
}
