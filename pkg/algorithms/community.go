package algorithms

import "fmt"

// GroupCommunities turns a membership vector into communities with their
// weight statistics and the partition's modularity.
func GroupCommunities(g *WeightedGraph, membership []int) (*CommunityDetectionResult, error) {
	if len(membership) != g.NodeCount() {
		return nil, fmt.Errorf("%w: membership has %d entries for %d nodes",
			ErrInvalidGraph, len(membership), g.NodeCount())
	}

	renumbered, k := Renumber(membership)
	communities := make([]*Community, k)
	for c := range communities {
		communities[c] = &Community{ID: c, Nodes: make([]int, 0)}
	}

	for node, c := range renumbered {
		community := communities[c]
		community.Nodes = append(community.Nodes, node)
		community.Strength += g.Strength(node)
	}

	pairWeight := make([]float64, k)
	for _, e := range g.edges {
		c := renumbered[e.From]
		if c != renumbered[e.To] {
			continue
		}
		communities[c].InternalWeight += e.Weight
		if e.From != e.To {
			pairWeight[c] += e.Weight
		}
	}

	for c, community := range communities {
		community.Size = len(community.Nodes)
		if community.Size > 1 {
			possible := float64(community.Size*(community.Size-1)) / 2
			community.Density = pairWeight[c] / possible
		}
	}

	result := &CommunityDetectionResult{
		Communities:   communities,
		NodeCommunity: renumbered,
	}

	if g.TotalWeight() > 0 {
		q, err := Modularity(g, renumbered)
		if err != nil {
			return nil, err
		}
		result.Modularity = q
	}

	return result, nil
}
