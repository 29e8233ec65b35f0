package algorithms

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	dto "github.com/prometheus/client_model/go"
)

// TestCluster_TwoDisconnectedTriangles tests the analytic two-triangle case
func TestCluster_TwoDisconnectedTriangles(t *testing.T) {
	result, err := Cluster(twoTriangles(t), DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	if !almostEqual(result.BestModularity, 0.5) {
		t.Errorf("BestModularity = %v, want 0.5", result.BestModularity)
	}
	m := result.BestMembership
	if m[0] != m[1] || m[1] != m[2] || m[3] != m[4] || m[4] != m[5] || m[0] == m[3] {
		t.Errorf("BestMembership = %v, want the two triangles apart", m)
	}
	// The second level cannot merge disconnected super-nodes and is dropped
	if len(result.Levels) != 1 {
		t.Errorf("recorded %d levels, want 1", len(result.Levels))
	}
}

// TestCluster_TwoNodes tests the single-edge graph
func TestCluster_TwoNodes(t *testing.T) {
	g := mustGraph(t, 2, []Edge{{From: 0, To: 1, Weight: 1}})

	result, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	if len(result.Levels) != 1 {
		t.Fatalf("recorded %d levels, want 1", len(result.Levels))
	}
	level := result.Levels[0]
	if level.Level != 0 || level.CommunityCount != 1 {
		t.Errorf("level = %+v, want level 0 with K=1", level)
	}
	if !almostEqual(result.BestModularity, 0) {
		t.Errorf("BestModularity = %v, want 0", result.BestModularity)
	}
	if !reflect.DeepEqual(result.BestMembership, []int{0, 0}) {
		t.Errorf("BestMembership = %v, want [0 0]", result.BestMembership)
	}
}

// TestCluster_SingleNode tests that a graph without weight is rejected
func TestCluster_SingleNode(t *testing.T) {
	_, err := Cluster(mustGraph(t, 1, nil), DefaultEpsilon, DefaultMaxPassesPerLevel)
	if !errors.Is(err, ErrUndefinedModularity) {
		t.Errorf("Expected ErrUndefinedModularity, got %v", err)
	}
}

// TestCluster_SingleNodeSelfLoop tests that the first level is kept even
// when nothing merges
func TestCluster_SingleNodeSelfLoop(t *testing.T) {
	g := mustGraph(t, 1, []Edge{{From: 0, To: 0, Weight: 2}})

	result, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(result.Levels) != 1 || result.Levels[0].CommunityCount != 1 {
		t.Errorf("levels = %+v, want one level with K=1", result.Levels)
	}
	if !almostEqual(result.BestModularity, 0) {
		t.Errorf("BestModularity = %v, want 0", result.BestModularity)
	}
}

// TestCluster_RingOfCliques tests that cliques are recovered and levels
// are consistent with the original graph
func TestCluster_RingOfCliques(t *testing.T) {
	g := ringOfCliques(t, 6, 5)

	result, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	assertLouvainInvariants(t, g, result, DefaultEpsilon)

	// Members of one clique always end up together
	for c := 0; c < 6; c++ {
		for i := 1; i < 5; i++ {
			if result.BestMembership[c*5] != result.BestMembership[c*5+i] {
				t.Errorf("clique %d split in best membership %v", c, result.BestMembership)
			}
		}
	}
	if result.BestModularity < 0.6 {
		t.Errorf("BestModularity = %v, want >= 0.6", result.BestModularity)
	}
}

// TestCluster_KarateClub tests the classic benchmark network
func TestCluster_KarateClub(t *testing.T) {
	g := karateClub(t)

	result, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	assertLouvainInvariants(t, g, result, DefaultEpsilon)

	// The maximum modularity of this network is about 0.4198
	if result.BestModularity < 0.40 || result.BestModularity > 0.4199 {
		t.Errorf("BestModularity = %v, want in [0.40, 0.4199]", result.BestModularity)
	}
	k := result.Best().CommunityCount
	if k < 3 || k > 5 {
		t.Errorf("best level has %d communities, want 3 to 5", k)
	}
}

// TestCluster_Deterministic tests that repeated runs and worker counts agree
func TestCluster_Deterministic(t *testing.T) {
	g := randomGraph(t, 2024, 150)

	first, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	second, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated runs produced different results")
	}

	opts := DefaultLouvainOptions()
	opts.Workers = 3
	opts.BatchSize = 7
	parallel, err := ClusterWithOptions(g, opts)
	if err != nil {
		t.Fatalf("parallel Cluster failed: %v", err)
	}
	if !reflect.DeepEqual(first, parallel) {
		t.Error("parallel run differs from sequential run")
	}
}

func TestCluster_PassBound(t *testing.T) {
	_, err := Cluster(twoTriangles(t), DefaultEpsilon, 1)
	if !errors.Is(err, ErrExceededPassBound) {
		t.Fatalf("Expected ErrExceededPassBound, got %v", err)
	}
	if !strings.Contains(err.Error(), "level 0") {
		t.Errorf("error %q should name the level", err)
	}
}

func TestCluster_PassBoundLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultLouvainOptions()
	opts.MaxPassesPerLevel = 1
	opts.Logger = logging.NewJSONLogger(&buf, logging.InfoLevel)

	if _, err := ClusterWithOptions(twoTriangles(t), opts); !errors.Is(err, ErrExceededPassBound) {
		t.Fatalf("Expected ErrExceededPassBound, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"louvain run failed"`) || !strings.Contains(out, `"level":"ERROR"`) {
		t.Errorf("missing failure log line:\n%s", out)
	}
}

func TestClusterWithOptions_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*LouvainOptions)
	}{
		{"negative epsilon", func(o *LouvainOptions) { o.Epsilon = -1 }},
		{"zero passes", func(o *LouvainOptions) { o.MaxPassesPerLevel = 0 }},
		{"negative workers", func(o *LouvainOptions) { o.Workers = -1 }},
		{"negative batch", func(o *LouvainOptions) { o.BatchSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultLouvainOptions()
			tt.modify(&opts)
			if _, err := ClusterWithOptions(twoTriangles(t), opts); !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Expected ErrInvalidOptions, got %v", err)
			}
		})
	}

	if _, err := ClusterWithOptions(nil, DefaultLouvainOptions()); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("Expected ErrInvalidGraph for nil graph, got %v", err)
	}
}

func TestClusterContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ClusterContext(ctx, karateClub(t), DefaultLouvainOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if ErrorKind(err) != KindCanceled {
		t.Errorf("ErrorKind = %q, want %q", ErrorKind(err), KindCanceled)
	}
}

// TestClusterWithOptions_Observer tests the per-level hook and logging
func TestClusterWithOptions_Observer(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultLouvainOptions()
	opts.Logger = logging.NewJSONLogger(&buf, logging.DebugLevel)

	var seen []LouvainLevel
	opts.Observer = func(level LouvainLevel) {
		seen = append(seen, level)
	}

	result, err := ClusterWithOptions(ringOfCliques(t, 6, 5), opts)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if !reflect.DeepEqual(seen, result.Levels) {
		t.Errorf("observer saw %d levels, result has %d", len(seen), len(result.Levels))
	}

	out := buf.String()
	if strings.Count(out, "level recorded") != len(result.Levels) {
		t.Errorf("expected one debug line per level, got:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"louvain run"`) {
		t.Errorf("missing completion log line:\n%s", out)
	}
}

func TestClusterWithOptions_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	opts := DefaultLouvainOptions()
	opts.Metrics = reg

	result, err := ClusterWithOptions(karateClub(t), opts)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if _, err := ClusterWithOptions(mustGraph(t, 1, nil), opts); err == nil {
		t.Fatal("Expected an error for an empty graph")
	}

	var metric dto.Metric
	if err := reg.LouvainLevelsTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if int(metric.Counter.GetValue()) != len(result.Levels) {
		t.Errorf("levels total = %v, want %d", metric.Counter.GetValue(), len(result.Levels))
	}

	failed, _ := reg.LouvainRunsTotal.GetMetricWithLabelValues(KindUndefinedModularity)
	if err := failed.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("failed runs = %v, want 1", metric.Counter.GetValue())
	}
}

func TestLouvainResult_Communities(t *testing.T) {
	g := twoTriangles(t)
	result, err := Cluster(g, DefaultEpsilon, DefaultMaxPassesPerLevel)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	communities, err := result.Communities(g)
	if err != nil {
		t.Fatalf("Communities failed: %v", err)
	}
	if len(communities.Communities) != 2 {
		t.Fatalf("got %d communities, want 2", len(communities.Communities))
	}
	for _, c := range communities.Communities {
		if c.Size != 3 || c.InternalWeight != 3 || c.Density != 1 {
			t.Errorf("community %+v, want size 3, weight 3, density 1", c)
		}
	}
	if !almostEqual(communities.Modularity, result.BestModularity) {
		t.Errorf("Modularity = %v, want %v", communities.Modularity, result.BestModularity)
	}
}

func TestSelectBest_TiesKeepFirstLevel(t *testing.T) {
	result := &LouvainResult{Levels: []LouvainLevel{
		{Level: 0, Modularity: 0.30},
		{Level: 1, Modularity: 0.40},
		{Level: 2, Modularity: 0.40 + 1e-13},
	}}
	result.selectBest(1e-12)

	if result.BestLevel != 1 {
		t.Errorf("BestLevel = %d, want 1", result.BestLevel)
	}
}

// assertLouvainInvariants checks the properties every result must have
func assertLouvainInvariants(t *testing.T, g *WeightedGraph, result *LouvainResult, epsilon float64) {
	t.Helper()

	if len(result.Levels) == 0 {
		t.Fatal("no levels recorded")
	}

	maxQ := result.Levels[0].Modularity
	for i, level := range result.Levels {
		if level.Level != i {
			t.Errorf("level %d recorded with index %d", i, level.Level)
		}
		if len(level.Membership) != g.NodeCount() {
			t.Errorf("level %d membership has %d entries, want %d", i, len(level.Membership), g.NodeCount())
		}
		seen := make([]bool, level.CommunityCount)
		for node, c := range level.Membership {
			if c < 0 || c >= level.CommunityCount {
				t.Fatalf("level %d node %d in community %d outside [0, %d)", i, node, c, level.CommunityCount)
			}
			seen[c] = true
		}
		for c, ok := range seen {
			if !ok {
				t.Errorf("level %d community %d is empty", i, c)
			}
		}

		q, err := Modularity(g, level.Membership)
		if err != nil {
			t.Fatalf("Modularity failed: %v", err)
		}
		if !almostEqual(q, level.Modularity) {
			t.Errorf("level %d modularity %v, recomputed %v", i, level.Modularity, q)
		}
		if i > 0 && level.Modularity < result.Levels[i-1].Modularity-epsilon {
			t.Errorf("level %d modularity %v below previous %v", i, level.Modularity, result.Levels[i-1].Modularity)
		}
		if level.Modularity > maxQ {
			maxQ = level.Modularity
		}
	}

	if result.BestModularity < maxQ-epsilon {
		t.Errorf("BestModularity %v below level maximum %v", result.BestModularity, maxQ)
	}
	q, err := Modularity(g, result.BestMembership)
	if err != nil {
		t.Fatalf("Modularity failed: %v", err)
	}
	if !almostEqual(q, result.BestModularity) {
		t.Errorf("BestMembership evaluates to %v, BestModularity is %v", q, result.BestModularity)
	}
	if !reflect.DeepEqual(result.BestMembership, result.Levels[result.BestLevel].Membership) {
		t.Error("BestMembership does not match the best level record")
	}
}
