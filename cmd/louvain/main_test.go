package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

const twoTriangles = `# two disconnected triangles
0 1
1 2
0 2
3 4
4 5
3 5
`

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_LevelReport(t *testing.T) {
	input := writeInput(t, "triangles.txt", twoTriangles)

	code, stdout, stderr := runCLI(t, "", input)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "Cluster 0:\n0 0 0 1 1 1 \n\n", stdout)
}

func TestRun_Stdin(t *testing.T) {
	code, stdout, stderr := runCLI(t, twoTriangles, "-")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "Cluster 0:\n0 0 0 1 1 1 \n\n", stdout)
}

func TestRun_NCOLClusters(t *testing.T) {
	input := writeInput(t, "named.ncol", "a b 2\nb c\na c\nx y\ny z\nx z\n")

	code, stdout, stderr := runCLI(t, "", "-format", "ncol", "-levels", "", "-clusters", "-", input)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "0: a b c\n1: x y z\n", stdout)
}

func TestRun_Outputs(t *testing.T) {
	input := writeInput(t, "triangles.txt", twoTriangles)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	snapPath := filepath.Join(dir, "run.lvsn")
	promPath := filepath.Join(dir, "louvain.prom")

	code, _, stderr := runCLI(t, "",
		"-levels", "",
		"-json", jsonPath,
		"-snapshot", snapPath,
		"-metrics-textfile", promPath,
		"-summary",
		input)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "LEVEL")
	assert.Contains(t, stderr, `"msg":"snapshot written"`)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var report struct {
		Meta struct {
			RunID string `json:"run_id"`
			Nodes int    `json:"nodes"`
		} `json:"meta"`
		Result struct {
			BestModularity float64 `json:"best_modularity"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 6, report.Meta.Nodes)
	assert.InDelta(t, 0.5, report.Result.BestModularity, 1e-9)

	snap, err := snapshot.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, report.Meta.RunID, snap.RunID.String())
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, snap.Result.BestMembership)

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `louvain_runs_total{status="success"} 1`)
}

func TestRun_SnapshotWriteFailureIsLogged(t *testing.T) {
	input := writeInput(t, "triangles.txt", twoTriangles)

	code, _, stderr := runCLI(t, "", "-levels", "", "-snapshot", "/nonexistent/dir/run.lvsn", input)
	require.Equal(t, exitOutput, code, stderr)
	assert.Contains(t, stderr, `"msg":"snapshot written failed"`)
	assert.Contains(t, stderr, `"latency"`)
}

func TestRun_ExitCodes(t *testing.T) {
	triangles := writeInput(t, "triangles.txt", twoTriangles)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"-no-such-flag"}, exitUsage},
		{"two inputs", []string{triangles, triangles}, exitUsage},
		{"missing config", []string{"-config", "/nonexistent/louvain.yaml", triangles}, exitUsage},
		{"bad format", []string{"-format", "gml", triangles}, exitUsage},
		{"missing input", []string{"/nonexistent/graph.txt"}, exitInput},
		{"malformed input", []string{writeInput(t, "bad.txt", "0 1 x\n")}, exitInput},
		{"negative weight", []string{writeInput(t, "neg.txt", "0 1 -2\n")}, exitInput},
		{"zero weight", []string{writeInput(t, "zero.txt", "0 1 0\n")}, exitCluster},
		{"pass bound", []string{"-max-passes", "1", triangles}, exitCluster},
		{"unwritable output", []string{"-levels", "/nonexistent/dir/levels.txt", triangles}, exitOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.want, code, stderr)
		})
	}
}

func TestRun_TruncateOnPassBound(t *testing.T) {
	input := writeInput(t, "triangles.txt", twoTriangles)

	code, stdout, stderr := runCLI(t, "", "-max-passes", "1", "-truncate", input)
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "Cluster 0:\n"))
}

func TestParseArgs_ConfigFileAndFlags(t *testing.T) {
	configPath := writeInput(t, "louvain.yaml", `
louvain:
  epsilon: 0.001
  max_passes_per_level: 50
  workers: 2
input:
  format: ncol
output:
  levels: ""
  clusters: "-"
`)

	var stderr bytes.Buffer
	cfg, err := parseArgs([]string{"-config", configPath, "-workers", "4", "graph.ncol"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, 0.001, cfg.Louvain.Epsilon)
	assert.Equal(t, 50, cfg.Louvain.MaxPassesPerLevel)
	assert.Equal(t, 4, cfg.Louvain.Workers)
	assert.Equal(t, "ncol", cfg.Input.Format)
	assert.Equal(t, "graph.ncol", cfg.Input.Path)
	assert.Equal(t, "", cfg.Output.Levels)
	assert.Equal(t, "-", cfg.Output.Clusters)
}
