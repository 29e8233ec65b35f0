package algorithms

import "fmt"

// Modularity computes Q for membership on g from community aggregates:
//
//	Q = sum over c of [ W_c/m - (tot_c/2m)^2 ]
//
// where W_c is the weight of edges with both endpoints in c (self-loops once)
// and tot_c is the summed strength of c's members. Community ids need not be
// contiguous but must be non-negative; ids at or above the node count are
// renumbered first.
func Modularity(g *WeightedGraph, membership []int) (float64, error) {
	m := g.TotalWeight()
	if m <= 0 {
		return 0, ErrUndefinedModularity
	}
	if len(membership) != g.NodeCount() {
		return 0, fmt.Errorf("%w: membership has %d entries for %d nodes",
			ErrInvalidGraph, len(membership), g.NodeCount())
	}

	maxID := -1
	for node, c := range membership {
		if c < 0 {
			return 0, fmt.Errorf("%w: node %d has negative community %d", ErrInvalidGraph, node, c)
		}
		if c > maxID {
			maxID = c
		}
	}

	if maxID >= len(membership) {
		var k int
		membership, k = Renumber(membership)
		maxID = k - 1
	}

	internal := make([]float64, maxID+1)
	totals := make([]float64, maxID+1)
	for node, c := range membership {
		totals[c] += g.Strength(node)
	}
	for _, e := range g.edges {
		if membership[e.From] == membership[e.To] {
			internal[membership[e.From]] += e.Weight
		}
	}

	return modularityFromAggregates(internal, totals, m), nil
}

// modularityFromAggregates sums per-community contributions. Empty
// communities contribute nothing.
func modularityFromAggregates(internal, totals []float64, m float64) float64 {
	twoM := 2 * m
	q := 0.0
	for c := range totals {
		if totals[c] == 0 && internal[c] == 0 {
			continue
		}
		share := totals[c] / twoM
		q += internal[c]/m - share*share
	}
	return q
}

// MoveGain is the modularity change of moving a node out of its current
// community into a candidate community.
//
// strength is the node's strength, toCandidate and toCurrent the weights of
// its edges into the candidate and current community (self-loop excluded),
// currentTotal the current community's strength including the node and
// candidateTotal the candidate's strength. m is the graph's total weight.
func MoveGain(strength, toCandidate, toCurrent, currentTotal, candidateTotal, m float64) float64 {
	remaining := currentTotal - strength
	return (toCandidate-toCurrent)/m - strength*(candidateTotal-remaining)/(2*m*m)
}
