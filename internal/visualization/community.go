package visualization

import (
	"sort"

	"github.com/agenthands/inquest/internal/core/model"
)

const maxPropagationRounds = 20

// Communities groups snapshot nodes by label propagation over the edges,
// treating the graph as undirected and parallel edges as heavier links. It
// returns a community index per node id; indexes follow node order, so
// isolated nodes each get their own.
func Communities(nodes []model.GraphNode, edges []model.GraphEdge) map[string]int {
	adj := make(map[string]map[string]int, len(nodes))
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		adj[n.ID] = make(map[string]int)
		labels[n.ID] = n.ID
	}
	for _, e := range edges {
		if adj[e.From] == nil || adj[e.To] == nil || e.From == e.To {
			continue
		}
		adj[e.From][e.To]++
		adj[e.To][e.From]++
	}

	for round := 0; round < maxPropagationRounds; round++ {
		changed := false
		for _, n := range nodes {
			if len(adj[n.ID]) == 0 {
				continue
			}
			weights := make(map[string]int)
			best := 0
			for v, w := range adj[n.ID] {
				weights[labels[v]] += w
				best = max(best, weights[labels[v]])
			}
			// keep the current label on a tie, else take the largest
			if weights[labels[n.ID]] == best {
				continue
			}
			var candidates []string
			for l, w := range weights {
				if w == best {
					candidates = append(candidates, l)
				}
			}
			sort.Strings(candidates)
			labels[n.ID] = candidates[len(candidates)-1]
			changed = true
		}
		if !changed {
			break
		}
	}

	index := make(map[string]int)
	out := make(map[string]int, len(nodes))
	for _, n := range nodes {
		l := labels[n.ID]
		if _, ok := index[l]; !ok {
			index[l] = len(index)
		}
		out[n.ID] = index[l]
	}
	return out
}
