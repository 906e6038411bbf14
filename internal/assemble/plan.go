package assemble

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/ironsheep/dataset-tools/internal/labels"
	"github.com/ironsheep/dataset-tools/internal/split"
)

// BucketKind says where a bucket's images came from.
type BucketKind string

const (
	BucketClass     BucketKind = "class"
	BucketShared    BucketKind = "shared"
	BucketRemaining BucketKind = "remaining"
)

// Bucket is one independently split list.
type Bucket struct {
	Kind  BucketKind      `json:"kind"`
	Class *labels.ClassID `json:"class,omitempty"`
	Size  int             `json:"size"`
	split.Split
}

// PlanOptions configures NewPlan.
type PlanOptions struct {
	Minority []labels.ClassID
	Ratios   split.Ratios

	// Rand drives every shuffle of the plan, in bucket order.
	Rand *rand.Rand

	// IncludeRemaining also splits images that contain no minority class.
	IncludeRemaining bool
}

// Plan is the outcome of splitting an index.
type Plan struct {
	Ratios split.Ratios `json:"ratios"`

	// Minority is the per-class image lists before leakage removal.
	Minority split.MinorityMap `json:"-"`
	Shared   []labels.ImageKey `json:"shared"`
	Buckets  []Bucket          `json:"buckets"`

	Train      []labels.ImageKey `json:"train"`
	Validation []labels.ImageKey `json:"validation"`
}

// NewPlan locates minority images in records, separates shared ones and
// splits every bucket with the same ratios. Buckets are split in ascending
// class order, then shared, then remaining, so a seeded Rand reproduces the
// plan.
func NewPlan(records []labels.Record, opts PlanOptions) (*Plan, error) {
	if err := opts.Ratios.Validate(); err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		return nil, errors.New("assemble: nil random source")
	}
	if len(opts.Minority) == 0 && !opts.IncludeRemaining {
		return nil, errors.New("assemble: no minority classes requested")
	}

	located := split.Locate(records, opts.Minority)
	exclusive, shared := split.Resolve(located)

	p := &Plan{Ratios: opts.Ratios, Minority: located, Shared: shared}

	for _, id := range exclusive.Classes() {
		s, err := split.SplitKeys(opts.Rand, exclusive[id], opts.Ratios)
		if err != nil {
			return nil, err
		}
		class := id
		p.Buckets = append(p.Buckets, Bucket{Kind: BucketClass, Class: &class, Size: len(exclusive[id]), Split: s})
	}

	s, err := split.SplitKeys(opts.Rand, shared, opts.Ratios)
	if err != nil {
		return nil, err
	}
	p.Buckets = append(p.Buckets, Bucket{Kind: BucketShared, Size: len(shared), Split: s})

	if opts.IncludeRemaining {
		inMinority := make(map[labels.ImageKey]struct{})
		for _, k := range located.Images() {
			inMinority[k] = struct{}{}
		}
		var rest []labels.ImageKey
		for _, rec := range records {
			if _, ok := inMinority[rec.Key]; !ok {
				rest = append(rest, rec.Key)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
		s, err := split.SplitKeys(opts.Rand, rest, opts.Ratios)
		if err != nil {
			return nil, err
		}
		p.Buckets = append(p.Buckets, Bucket{Kind: BucketRemaining, Size: len(rest), Split: s})
	}

	if err := p.union(); err != nil {
		return nil, err
	}
	return p, nil
}

// union fills Train and Validation. Buckets are disjoint by construction, so
// a repeated key means the pipeline is broken.
func (p *Plan) union() error {
	seen := make(map[labels.ImageKey]string)
	add := func(dst *[]labels.ImageKey, keys []labels.ImageKey, set string) error {
		for _, k := range keys {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("assemble: image %q planned for both %s and %s", k, prev, set)
			}
			seen[k] = set
			*dst = append(*dst, k)
		}
		return nil
	}
	p.Train = []labels.ImageKey{}
	p.Validation = []labels.ImageKey{}
	for _, b := range p.Buckets {
		if err := add(&p.Train, b.Train, "train"); err != nil {
			return err
		}
		if err := add(&p.Validation, b.Validation, "validation"); err != nil {
			return err
		}
	}
	sort.Slice(p.Train, func(i, j int) bool { return p.Train[i] < p.Train[j] })
	sort.Slice(p.Validation, func(i, j int) bool { return p.Validation[i] < p.Validation[j] })
	return nil
}
