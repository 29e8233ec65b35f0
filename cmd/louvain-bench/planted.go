package main

import (
	"math/rand"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

// plantedPartition generates groups of groupSize nodes. Each pair inside a
// group is joined with probability pIn, each pair across groups with pOut.
// Node i belongs to group i / groupSize.
func plantedPartition(groups, groupSize int, pIn, pOut float64, seed int64) []algorithms.Edge {
	rng := rand.New(rand.NewSource(seed))
	n := groups * groupSize

	edges := make([]algorithms.Edge, 0)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			p := pOut
			if u/groupSize == v/groupSize {
				p = pIn
			}
			if rng.Float64() < p {
				edges = append(edges, algorithms.Edge{From: u, To: v, Weight: 1})
			}
		}
	}
	return edges
}

// purity is the fraction of nodes whose community's majority planted group
// is their own group.
func purity(membership []int, groupSize int) float64 {
	if len(membership) == 0 {
		return 0
	}

	counts := make(map[int]map[int]int)
	for node, c := range membership {
		if counts[c] == nil {
			counts[c] = make(map[int]int)
		}
		counts[c][node/groupSize]++
	}

	correct := 0
	for _, byGroup := range counts {
		best := 0
		for _, n := range byGroup {
			best = max(best, n)
		}
		correct += best
	}
	return float64(correct) / float64(len(membership))
}
