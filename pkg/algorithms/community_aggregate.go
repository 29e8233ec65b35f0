package algorithms

import (
	"fmt"
	"sort"
)

// Renumber maps community ids to 0..K-1 in order of first appearance when
// scanning nodes in ascending id.
func Renumber(membership []int) ([]int, int) {
	ids := make(map[int]int)
	out := make([]int, len(membership))
	for node, c := range membership {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[node] = id
	}
	return out, len(ids)
}

type communityPair struct {
	lo, hi int
}

// Aggregate collapses each community of g into one node. Edges between two
// communities are summed into one edge and edges inside a community become a
// self-loop on its node, so the total weight is preserved. membership must be
// renumbered to [0, k).
func Aggregate(g *WeightedGraph, membership []int, k int) (*WeightedGraph, error) {
	if len(membership) != g.NodeCount() {
		return nil, fmt.Errorf("%w: membership has %d entries for %d nodes",
			ErrInvalidGraph, len(membership), g.NodeCount())
	}
	for node, c := range membership {
		if c < 0 || c >= k {
			return nil, fmt.Errorf("%w: node %d has community %d outside [0, %d)",
				ErrInvalidGraph, node, c, k)
		}
	}

	sums := make(map[communityPair]float64)
	for _, e := range g.edges {
		a, b := membership[e.From], membership[e.To]
		if a > b {
			a, b = b, a
		}
		sums[communityPair{lo: a, hi: b}] += e.Weight
	}

	pairs := make([]communityPair, 0, len(sums))
	for p := range sums {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].lo != pairs[j].lo {
			return pairs[i].lo < pairs[j].lo
		}
		return pairs[i].hi < pairs[j].hi
	})

	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{From: p.lo, To: p.hi, Weight: sums[p]}
	}
	return NewWeightedGraph(k, edges)
}
