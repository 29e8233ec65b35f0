package algorithms

import (
	"fmt"
	"math"
	"sort"
)

// Edge is an undirected weighted edge between two node ids.
// From == To is a self-loop.
type Edge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// Neighbor is one entry of a node's adjacency.
type Neighbor struct {
	Node   int
	Weight float64
}

// WeightedGraph is an immutable undirected weighted graph with nodes 0..N-1.
//
// Strength counts a self-loop twice, TotalWeight counts it once, so the sum
// of all strengths is always 2 * TotalWeight.
type WeightedGraph struct {
	nodeCount   int
	edges       []Edge
	adjacency   [][]Neighbor // merged parallel edges, ascending neighbor id
	selfLoops   []float64
	strength    []float64
	totalWeight float64
}

// NewWeightedGraph validates the edge list and builds the adjacency.
func NewWeightedGraph(nodeCount int, edges []Edge) (*WeightedGraph, error) {
	if nodeCount < 1 {
		return nil, fmt.Errorf("%w: node count must be at least 1, got %d", ErrInvalidGraph, nodeCount)
	}

	g := &WeightedGraph{
		nodeCount: nodeCount,
		edges:     make([]Edge, len(edges)),
		adjacency: make([][]Neighbor, nodeCount),
		selfLoops: make([]float64, nodeCount),
		strength:  make([]float64, nodeCount),
	}
	copy(g.edges, edges)

	for i, e := range edges {
		if e.From < 0 || e.From >= nodeCount || e.To < 0 || e.To >= nodeCount {
			return nil, fmt.Errorf("%w: %w: edge %d (%d, %d) outside [0, %d)",
				ErrInvalidGraph, ErrInvalidNode, i, e.From, e.To, nodeCount)
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, fmt.Errorf("%w: %w: edge %d (%d, %d) has weight %v",
				ErrInvalidGraph, ErrInvalidWeight, i, e.From, e.To, e.Weight)
		}

		g.totalWeight += e.Weight
		if e.From == e.To {
			g.selfLoops[e.From] += e.Weight
			g.strength[e.From] += 2 * e.Weight
			continue
		}
		g.strength[e.From] += e.Weight
		g.strength[e.To] += e.Weight
	}

	g.buildAdjacency()
	return g, nil
}

// buildAdjacency merges parallel edges so each neighbor appears once per node.
func (g *WeightedGraph) buildAdjacency() {
	merged := make([]map[int]float64, g.nodeCount)
	for _, e := range g.edges {
		if merged[e.From] == nil {
			merged[e.From] = make(map[int]float64)
		}
		merged[e.From][e.To] += e.Weight
		if e.From == e.To {
			continue
		}
		if merged[e.To] == nil {
			merged[e.To] = make(map[int]float64)
		}
		merged[e.To][e.From] += e.Weight
	}

	for node, weights := range merged {
		if len(weights) == 0 {
			continue
		}
		list := make([]Neighbor, 0, len(weights))
		for neighbor, w := range weights {
			list = append(list, Neighbor{Node: neighbor, Weight: w})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Node < list[j].Node })
		g.adjacency[node] = list
	}
}

// NodeCount returns N.
func (g *WeightedGraph) NodeCount() int {
	return g.nodeCount
}

// EdgeCount returns the number of edges as given, parallel edges included.
func (g *WeightedGraph) EdgeCount() int {
	return len(g.edges)
}

// Edges returns a copy of the edge list.
func (g *WeightedGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the adjacency of node, including a self-loop entry if
// present. The returned slice must not be modified.
func (g *WeightedGraph) Neighbors(node int) []Neighbor {
	return g.adjacency[node]
}

// SelfLoop returns the summed self-loop weight of node.
func (g *WeightedGraph) SelfLoop(node int) float64 {
	return g.selfLoops[node]
}

// Strength returns the weighted degree of node.
func (g *WeightedGraph) Strength(node int) float64 {
	return g.strength[node]
}

// TotalWeight returns m, the sum of all edge weights.
func (g *WeightedGraph) TotalWeight() float64 {
	return g.totalWeight
}
