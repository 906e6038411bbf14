package split

import (
	"sort"

	"github.com/ironsheep/dataset-tools/internal/labels"
)

// MinorityMap maps each requested minority class to the images containing it.
type MinorityMap map[labels.ClassID][]labels.ImageKey

// Classes returns the map's class ids in ascending order.
func (m MinorityMap) Classes() []labels.ClassID {
	ids := make([]labels.ClassID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Images returns the union of all lists, sorted.
func (m MinorityMap) Images() []labels.ImageKey {
	seen := make(map[labels.ImageKey]struct{})
	for _, keys := range m {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Locate scans records once and returns, for every id in minority, the keys
// of the records containing it. Every requested id gets an entry, empty when
// no record has the class.
func Locate(records []labels.Record, minority []labels.ClassID) MinorityMap {
	m := make(MinorityMap, len(minority))
	for _, id := range minority {
		if _, ok := m[id]; !ok {
			m[id] = []labels.ImageKey{}
		}
	}

	for _, rec := range records {
		for id := range m {
			if rec.Has(id) {
				m[id] = append(m[id], rec.Key)
			}
		}
	}

	for id := range m {
		sortImageKeys(m[id])
	}
	return m
}

func sortImageKeys(keys []labels.ImageKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

func sortedKeys(set map[labels.ImageKey]struct{}) []labels.ImageKey {
	keys := make([]labels.ImageKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sortImageKeys(keys)
	return keys
}
