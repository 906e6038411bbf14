package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/labels"
)

// ManifestName is the dataset description written next to train and val.
const ManifestName = "data.yaml"

// placeholderName formats the name of an id the table skips.
const placeholderName = "unused_%d"

// Manifest is the dataset description read by YOLO-style trainers.
type Manifest struct {
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Val   string         `yaml:"val"`
	NC    int            `yaml:"nc"`
	Names map[int]string `yaml:"names"`
}

// WriteManifest writes <outDir>/data.yaml and returns its path. Trainers
// index names by id, so nc is the largest id plus one and ids missing from
// the table get a placeholder name.
func WriteManifest(outDir string, table *classes.Table) (string, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return "", err
	}
	ids := table.IDs()
	nc := 0
	if len(ids) > 0 {
		nc = int(ids[len(ids)-1]) + 1
	}
	m := Manifest{
		Path:  abs,
		Train: TrainDir,
		Val:   ValDir,
		NC:    nc,
		Names: make(map[int]string, nc),
	}
	for id := 0; id < nc; id++ {
		name, ok := table.Name(labels.ClassID(id))
		if !ok {
			name = fmt.Sprintf(placeholderName, id)
		}
		m.Names[id] = name
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	p := filepath.Join(outDir, ManifestName)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return p, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

func sortReport(r *Report) {
	sort.Slice(r.Missing, func(i, j int) bool { return r.Missing[i].Key < r.Missing[j].Key })
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Key < r.Failed[j].Key })
}
