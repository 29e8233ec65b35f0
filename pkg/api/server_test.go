package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/auth"
	"github.com/dd0wney/cluso-louvain/pkg/events"
	"github.com/dd0wney/cluso-louvain/pkg/health"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
	"github.com/dd0wney/cluso-louvain/pkg/store"
	"github.com/dd0wney/cluso-louvain/pkg/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const twoTrianglesJSON = `{"edges":[
	{"from":0,"to":1},{"from":1,"to":2},{"from":0,"to":2},
	{"from":3,"to":4},{"from":4,"to":5},{"from":3,"to":5}]`

// setupTestServer creates a server over an in-memory store
func setupTestServer(t *testing.T, deps Deps) (*Server, *store.MemoryStore) {
	t.Helper()

	mem := store.NewMemoryStore()
	deps.Store = mem
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	server, err := NewServer(Config{}, deps)
	require.NoError(t, err)
	return server, mem
}

func doRequest(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestNewServer_RequiresStore(t *testing.T) {
	_, err := NewServer(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHandleCluster_Edges(t *testing.T) {
	server, mem := setupTestServer(t, Deps{})
	h := server.Handler()

	rr := doRequest(t, h, http.MethodPost, "/v1/cluster", twoTrianglesJSON+`,"persist":true}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ClusterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Nodes)
	assert.Equal(t, 6, resp.Edges)
	assert.InDelta(t, 0.5, resp.BestModularity, 1e-9)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, resp.BestMembership)
	assert.True(t, resp.Persisted)
	assert.NotEmpty(t, resp.Fingerprint)

	runs, err := mem.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].RunID.String())
	assert.Equal(t, resp.Fingerprint, runs[0].Fingerprint)
}

func TestHandleCluster_NotPersistedByDefault(t *testing.T) {
	server, mem := setupTestServer(t, Deps{})

	rr := doRequest(t, server.Handler(), http.MethodPost, "/v1/cluster", twoTrianglesJSON+`}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	runs, err := mem.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHandleCluster_NCOLText(t *testing.T) {
	server, _ := setupTestServer(t, Deps{})

	body, err := json.Marshal(map[string]any{
		"format": "ncol",
		"text":   "a b\nb c\na c\nx y\ny z\nx z\n",
	})
	require.NoError(t, err)

	rr := doRequest(t, server.Handler(), http.MethodPost, "/v1/cluster", string(body), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ClusterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a", "b", "c", "x", "y", "z"}, resp.Names)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, resp.BestMembership)
}

func TestHandleCluster_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed json", `{"edges":`, http.StatusBadRequest, ""},
		{"no graph", `{}`, http.StatusBadRequest, ""},
		{"negative weight", `{"edges":[{"from":0,"to":1,"weight":-1}]}`, http.StatusBadRequest, ""},
		{"edge outside nodes", `{"nodes":2,"edges":[{"from":0,"to":5}]}`, http.StatusBadRequest, ""},
		{"malformed text", `{"text":"0 1 heavy"}`, http.StatusBadRequest, ""},
		{"edge endpoint over node limit", `{"edges":[{"from":0,"to":2000000000}]}`, http.StatusBadRequest, ""},
		{"text node id over node limit", `{"text":"0 2000000000\n"}`, http.StatusBadRequest, ""},
		{"zero total weight", `{"edges":[{"from":0,"to":1,"weight":0}]}`, http.StatusUnprocessableEntity, algorithms.KindUndefinedModularity},
		{"pass bound", twoTrianglesJSON + `,"max_passes_per_level":1}`, http.StatusUnprocessableEntity, algorithms.KindExceededPassBound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := setupTestServer(t, Deps{})

			rr := doRequest(t, server.Handler(), http.MethodPost, "/v1/cluster", tt.body, "")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())

			resp := decodeError(t, rr)
			assert.Equal(t, tt.status, resp.Code)
			assert.NotEmpty(t, resp.Message)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, resp.Kind)
			}
		})
	}
}

func TestHandleCluster_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	levels, err := bus.Subscribe(ctx, events.TopicLevel)
	require.NoError(t, err)
	runs, err := bus.Subscribe(ctx, events.TopicRun)
	require.NoError(t, err)

	server, _ := setupTestServer(t, Deps{Bus: bus})
	rr := doRequest(t, server.Handler(), http.MethodPost, "/v1/cluster", twoTrianglesJSON+`}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ClusterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	select {
	case ev := <-levels.Channel():
		assert.Equal(t, resp.RunID, ev.RunID)
		require.NotNil(t, ev.Level)
		assert.Equal(t, 0, ev.Level.Level)
	case <-time.After(time.Second):
		t.Fatal("no level event")
	}

	select {
	case ev := <-runs.Channel():
		assert.Equal(t, resp.RunID, ev.RunID)
		require.NotNil(t, ev.Run)
		assert.Equal(t, "success", ev.Run.Status)
	case <-time.After(time.Second):
		t.Fatal("no run event")
	}
}

func TestHandleRuns(t *testing.T) {
	server, mem := setupTestServer(t, Deps{})
	h := server.Handler()

	g, err := algorithms.NewWeightedGraph(2, []algorithms.Edge{{From: 0, To: 1, Weight: 1}})
	require.NoError(t, err)
	result, err := algorithms.ClusterWithOptions(g, algorithms.DefaultLouvainOptions())
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		snap := snapshot.New(g, algorithms.DefaultLouvainOptions(), result, nil)
		snap.CreatedAt = snap.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, mem.SaveRun(context.Background(), snap))
		ids = append(ids, snap.RunID.String())
	}

	t.Run("get", func(t *testing.T) {
		rr := doRequest(t, h, http.MethodGet, "/v1/runs/"+ids[1], "", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var snap snapshot.Snapshot
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
		assert.Equal(t, ids[1], snap.RunID.String())
		require.NotNil(t, snap.Result)
		assert.Equal(t, result.BestMembership, snap.Result.BestMembership)
	})

	t.Run("not found", func(t *testing.T) {
		rr := doRequest(t, h, http.MethodGet, "/v1/runs/00000000-0000-0000-0000-000000000001", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rr := doRequest(t, h, http.MethodGet, "/v1/runs/not-a-uuid", "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := doRequest(t, h, http.MethodGet, "/v1/runs?limit=2", "", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp RunListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, ids[2], resp.Runs[0].RunID.String())
		assert.Equal(t, ids[1], resp.Runs[1].RunID.String())
	})

	t.Run("bad limit", func(t *testing.T) {
		rr := doRequest(t, h, http.MethodGet, "/v1/runs?limit=-3", "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("graphql", func(t *testing.T) {
		query := fmt.Sprintf(`{"query":"{ run(id: \"%s\") { bestModularity } }"}`, ids[0])
		rr := doRequest(t, h, http.MethodPost, "/graphql", query, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "bestModularity")
		assert.NotContains(t, rr.Body.String(), `"errors"`)
	})
}

func TestAuthentication(t *testing.T) {
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	reg := metrics.NewRegistry()

	server, _ := setupTestServer(t, Deps{Tokens: tokens, Metrics: reg})
	h := server.Handler()

	viewer, err := tokens.GenerateToken("alice", auth.RoleViewer)
	require.NoError(t, err)
	clusterer, err := tokens.GenerateToken("bob", auth.RoleCluster)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		status int
	}{
		{"missing token", http.MethodPost, "/v1/cluster", twoTrianglesJSON + `}`, "", http.StatusUnauthorized},
		{"garbage token", http.MethodPost, "/v1/cluster", twoTrianglesJSON + `}`, "garbage", http.StatusUnauthorized},
		{"viewer cannot cluster", http.MethodPost, "/v1/cluster", twoTrianglesJSON + `}`, viewer, http.StatusForbidden},
		{"cluster role can cluster", http.MethodPost, "/v1/cluster", twoTrianglesJSON + `}`, clusterer, http.StatusOK},
		{"viewer can list", http.MethodGet, "/v1/runs", "", viewer, http.StatusOK},
		{"cluster role can list", http.MethodGet, "/v1/runs", "", clusterer, http.StatusOK},
		{"health is open", http.MethodGet, "/health", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range families {
		if mf.GetName() == "louvain_auth_failures_total" {
			failures = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), failures)
}

func TestBodySizeLimit(t *testing.T) {
	mem := store.NewMemoryStore()
	server, err := NewServer(Config{MaxBodyBytes: 64}, Deps{Store: mem})
	require.NoError(t, err)

	body := bytes.Repeat([]byte(" "), 128)
	req := httptest.NewRequest(http.MethodPost, "/v1/cluster", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	server, _ := setupTestServer(t, Deps{})
	h := server.Handler()

	rr := doRequest(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp health.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Contains(t, resp.Checks, "store")

	rr = doRequest(t, h, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/v1/cluster", twoTrianglesJSON+`}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `louvain_runs_total{status="success"} 1`)
	assert.Contains(t, body, `path="POST /v1/cluster"`)
}

func TestPanicRecovery(t *testing.T) {
	server, _ := setupTestServer(t, Deps{})
	h := server.panicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := doRequest(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", algorithms.ErrInvalidWeight), http.StatusBadRequest},
		{algorithms.ErrInvalidNode, http.StatusBadRequest},
		{algorithms.ErrInvalidOptions, http.StatusBadRequest},
		{algorithms.ErrUndefinedModularity, http.StatusUnprocessableEntity},
		{algorithms.ErrExceededPassBound, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{store.ErrRunNotFound, http.StatusNotFound},
		{fmt.Errorf("build graph: %w", validation.ErrTooManyNodes), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, statusForError(tt.err), "error %v", tt.err)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	server, _ := setupTestServer(t, Deps{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
