package algorithms

import (
	"math"
	"math/rand"
	"testing"
)

const floatTolerance = 1e-9

func mustGraph(t testing.TB, n int, edges []Edge) *WeightedGraph {
	t.Helper()
	g, err := NewWeightedGraph(n, edges)
	if err != nil {
		t.Fatalf("NewWeightedGraph failed: %v", err)
	}
	return g
}

func unitEdges(pairs ...[2]int) []Edge {
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{From: p[0], To: p[1], Weight: 1}
	}
	return edges
}

// twoTriangles is two disconnected unit-weight triangles {0,1,2} and {3,4,5}.
func twoTriangles(t testing.TB) *WeightedGraph {
	return mustGraph(t, 6, unitEdges(
		[2]int{0, 1}, [2]int{1, 2}, [2]int{0, 2},
		[2]int{3, 4}, [2]int{4, 5}, [2]int{3, 5},
	))
}

// ringOfCliques is k cliques of size s, clique i joined to clique i+1 by one edge.
func ringOfCliques(t testing.TB, k, s int) *WeightedGraph {
	edges := make([]Edge, 0)
	for c := 0; c < k; c++ {
		base := c * s
		for i := 0; i < s; i++ {
			for j := i + 1; j < s; j++ {
				edges = append(edges, Edge{From: base + i, To: base + j, Weight: 1})
			}
		}
		next := ((c + 1) % k) * s
		edges = append(edges, Edge{From: base, To: next + 1, Weight: 1})
	}
	return mustGraph(t, k*s, edges)
}

// karateClub is Zachary's karate club network, 34 nodes and 78 edges.
func karateClub(t testing.TB) *WeightedGraph {
	return mustGraph(t, 34, unitEdges(
		[2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4}, [2]int{0, 5}, [2]int{0, 6},
		[2]int{0, 7}, [2]int{0, 8}, [2]int{0, 10}, [2]int{0, 11}, [2]int{0, 12}, [2]int{0, 13},
		[2]int{0, 17}, [2]int{0, 19}, [2]int{0, 21}, [2]int{0, 31},
		[2]int{1, 2}, [2]int{1, 3}, [2]int{1, 7}, [2]int{1, 13}, [2]int{1, 17}, [2]int{1, 19},
		[2]int{1, 21}, [2]int{1, 30},
		[2]int{2, 3}, [2]int{2, 7}, [2]int{2, 8}, [2]int{2, 9}, [2]int{2, 13}, [2]int{2, 27},
		[2]int{2, 28}, [2]int{2, 32},
		[2]int{3, 7}, [2]int{3, 12}, [2]int{3, 13},
		[2]int{4, 6}, [2]int{4, 10},
		[2]int{5, 6}, [2]int{5, 10}, [2]int{5, 16},
		[2]int{6, 16},
		[2]int{8, 30}, [2]int{8, 32}, [2]int{8, 33},
		[2]int{9, 33},
		[2]int{13, 33},
		[2]int{14, 32}, [2]int{14, 33},
		[2]int{15, 32}, [2]int{15, 33},
		[2]int{18, 32}, [2]int{18, 33},
		[2]int{19, 33},
		[2]int{20, 32}, [2]int{20, 33},
		[2]int{22, 32}, [2]int{22, 33},
		[2]int{23, 25}, [2]int{23, 27}, [2]int{23, 29}, [2]int{23, 32}, [2]int{23, 33},
		[2]int{24, 25}, [2]int{24, 27}, [2]int{24, 31},
		[2]int{25, 31},
		[2]int{26, 29}, [2]int{26, 33},
		[2]int{27, 33},
		[2]int{28, 31}, [2]int{28, 33},
		[2]int{29, 32}, [2]int{29, 33},
		[2]int{30, 32}, [2]int{30, 33},
		[2]int{31, 32}, [2]int{31, 33},
		[2]int{32, 33},
	))
}

// randomGraph builds a reproducible random weighted graph with at least one
// positive-weight edge. Some edges are parallel and some are self-loops.
func randomGraph(t testing.TB, seed int64, n int) *WeightedGraph {
	rng := rand.New(rand.NewSource(seed))
	count := n + rng.Intn(3*n+1)
	edges := make([]Edge, 0, count+1)
	for i := 0; i < count; i++ {
		from := rng.Intn(n)
		to := rng.Intn(n)
		if rng.Intn(8) != 0 && from == to {
			to = (to + 1) % n
		}
		weight := float64(1+rng.Intn(5)) / 2
		edges = append(edges, Edge{From: from, To: to, Weight: weight})
	}
	edges = append(edges, Edge{From: 0, To: n - 1, Weight: 1})
	return mustGraph(t, n, edges)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
