package classes

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/dataset-tools/internal/labels"
)

// ClassCount is the tally for one class.
type ClassCount struct {
	ID        labels.ClassID `json:"id"`
	Name      string         `json:"name"`
	Instances int            `json:"instances"`
	Images    int            `json:"images"`
	Share     float64        `json:"share"`
}

// Distribution summarizes instance counts over a label directory.
type Distribution struct {
	Classes []ClassCount `json:"classes"`
	Total   int          `json:"total_instances"`
	Images  int          `json:"images"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`

	// Imbalance is the largest non-zero count over the smallest; 0 when
	// fewer than one class occurs.
	Imbalance float64 `json:"imbalance"`
}

// Count tallies every object line of records per class. Every table class
// is reported, including those that never occur. A class id outside the
// table is an error naming the file it came from.
func Count(records []labels.Record, table *Table) (*Distribution, error) {
	byID := make(map[labels.ClassID]*ClassCount, table.Len())
	for _, id := range table.IDs() {
		name, _ := table.Name(id)
		byID[id] = &ClassCount{ID: id, Name: name}
	}

	d := &Distribution{Images: len(records)}
	for _, rec := range records {
		for _, id := range rec.Classes {
			c, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%s: %w: id %d", rec.Path, ErrUnknownClass, id)
			}
			n := rec.Instances[id]
			c.Instances += n
			c.Images++
			d.Total += n
		}
	}

	counts := make([]float64, 0, len(byID))
	minNZ, maxNZ := 0, 0
	for _, id := range table.IDs() {
		c := byID[id]
		if d.Total > 0 {
			c.Share = float64(c.Instances) / float64(d.Total)
		}
		d.Classes = append(d.Classes, *c)
		counts = append(counts, float64(c.Instances))
		if c.Instances > 0 {
			if minNZ == 0 || c.Instances < minNZ {
				minNZ = c.Instances
			}
			if c.Instances > maxNZ {
				maxNZ = c.Instances
			}
		}
	}

	if len(counts) > 0 {
		d.Mean = stat.Mean(counts, nil)
	}
	if len(counts) > 1 {
		d.StdDev = stat.StdDev(counts, nil)
	}
	if minNZ > 0 {
		d.Imbalance = float64(maxNZ) / float64(minNZ)
	}
	return d, nil
}

// Rare returns the classes whose share of instances is below threshold,
// rarest first. It is a hint for choosing minority classes; nothing in the
// split pipeline calls it.
func (d *Distribution) Rare(threshold float64) []ClassCount {
	var out []ClassCount
	for _, c := range d.Classes {
		if c.Share < threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Instances < out[j].Instances })
	return out
}
