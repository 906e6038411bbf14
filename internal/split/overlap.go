package split

import "github.com/ironsheep/dataset-tools/internal/labels"

// Resolve separates images shared by minority classes. The leakage set holds
// every image that occurs in two or more lists of m. The returned map has the
// same classes as m with leaked images removed, so its lists are pairwise
// disjoint and, together with the leakage set, cover exactly the images of m.
// m is not modified.
func Resolve(m MinorityMap) (MinorityMap, []labels.ImageKey) {
	counts := make(map[labels.ImageKey]int)
	for _, keys := range m {
		seen := make(map[labels.ImageKey]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			counts[k]++
		}
	}

	leaked := make(map[labels.ImageKey]struct{})
	for k, n := range counts {
		if n >= 2 {
			leaked[k] = struct{}{}
		}
	}

	exclusive := make(MinorityMap, len(m))
	for id, keys := range m {
		kept := make([]labels.ImageKey, 0, len(keys))
		seen := make(map[labels.ImageKey]struct{}, len(keys))
		for _, k := range keys {
			if _, ok := leaked[k]; ok {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, k)
		}
		sortImageKeys(kept)
		exclusive[id] = kept
	}

	return exclusive, sortedKeys(leaked)
}
