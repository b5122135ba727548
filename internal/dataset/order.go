package dataset

import (
	"math/rand"
	"sort"
)

type orderEntry struct {
	root string
	path string
}

// buildRoundRobinOrder interleaves shards across roots, one shard per root per
// round. Roots are visited in sorted order; shards within a root are shuffled
// with rng when it is non-nil.
func buildRoundRobinOrder(roots map[string][]string, rng *rand.Rand) []orderEntry {
	rootNames := make([]string, 0, len(roots))
	queues := make(map[string][]string, len(roots))
	for root, shards := range roots {
		if len(shards) == 0 {
			continue
		}
		rootNames = append(rootNames, root)
		queues[root] = append([]string(nil), shards...)
	}
	sort.Strings(rootNames)
	if rng != nil {
		for _, root := range rootNames {
			q := queues[root]
			rng.Shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
		}
	}

	var order []orderEntry
	for advanced := true; advanced; {
		advanced = false
		for _, root := range rootNames {
			q := queues[root]
			if len(q) == 0 {
				continue
			}
			order = append(order, orderEntry{root: root, path: q[0]})
			queues[root] = q[1:]
			advanced = true
		}
	}
	return order
}
