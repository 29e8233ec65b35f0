package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/edgelist"
	"github.com/dd0wney/cluso-louvain/pkg/events"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
	"github.com/dd0wney/cluso-louvain/pkg/validation"
)

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	var req validation.ClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateClusterRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, names, err := buildGraph(&req)
	if err != nil {
		s.respondClusterError(w, err, "build graph")
		return
	}

	runID := uuid.New()
	opts := s.requestOptions(&req, runID)
	s.metrics.SetGraphSize(g.NodeCount(), g.EdgeCount())

	ctx, cancel := context.WithTimeout(r.Context(), s.config.AlgorithmTimeout)
	defer cancel()

	start := time.Now()
	result, err := algorithms.ClusterContext(ctx, g, opts)
	elapsed := time.Since(start)
	if s.bus != nil {
		events.PublishRun(s.bus, runID.String(), result, err)
	}
	if err != nil {
		s.logger.Info("clustering failed",
			logging.RunID(runID.String()),
			logging.String("kind", algorithms.ErrorKind(err)),
			logging.Error(err))
		s.respondClusterError(w, err, "cluster")
		return
	}

	snap := snapshot.New(g, opts, result, names)
	snap.RunID = runID

	if req.Persist {
		saveStart := time.Now()
		err := s.store.SaveRun(r.Context(), snap)
		s.metrics.RecordOperation("store", "save_run", operationStatus(err), time.Since(saveStart))
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "save run"))
			return
		}
	}

	s.logger.Info("clustering completed",
		logging.RunID(runID.String()),
		logging.Nodes(g.NodeCount()),
		logging.Edges(g.EdgeCount()),
		logging.Int("levels", len(result.Levels)),
		logging.Modularity(result.BestModularity),
		logging.Latency(elapsed))

	s.respondJSON(w, http.StatusOK, ClusterResponse{
		RunID:          runID.String(),
		Fingerprint:    snap.Fingerprint,
		Nodes:          snap.Nodes,
		Edges:          snap.Edges,
		BestLevel:      result.BestLevel,
		BestModularity: result.BestModularity,
		BestMembership: result.BestMembership,
		Levels:         result.Levels,
		Names:          names,
		Persisted:      req.Persist,
		DurationMs:     float64(elapsed.Microseconds()) / 1000,
	})
}

// requestOptions overlays request fields on the server defaults.
func (s *Server) requestOptions(req *validation.ClusterRequest, runID uuid.UUID) algorithms.LouvainOptions {
	opts := s.config.Louvain
	if req.Epsilon != nil {
		opts.Epsilon = *req.Epsilon
	}
	if req.MaxPassesPerLevel > 0 {
		opts.MaxPassesPerLevel = req.MaxPassesPerLevel
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	opts.Logger = s.logger.With(logging.RunID(runID.String()))
	opts.Metrics = s.metrics
	if s.bus != nil {
		opts.Observer = events.Observer(s.bus, runID.String())
	}
	return opts
}

// buildGraph turns the request's edges or text into a graph. Names are
// returned for ncol text only.
func buildGraph(req *validation.ClusterRequest) (*algorithms.WeightedGraph, []string, error) {
	if req.Text != "" {
		format, err := edgelist.ParseFormat(req.Format)
		if err != nil {
			return nil, nil, err
		}
		parsed, err := edgelist.Parse(strings.NewReader(req.Text), format)
		if err != nil {
			return nil, nil, err
		}
		if err := validation.CheckNodeCount(parsed.NodeCount); err != nil {
			return nil, nil, err
		}
		g, err := parsed.Graph()
		return g, parsed.Names, err
	}

	n := req.Nodes
	edges := make([]algorithms.Edge, len(req.Edges))
	for i, e := range req.Edges {
		edges[i] = algorithms.Edge{From: e.From, To: e.To, Weight: e.WeightOrDefault()}
		if req.Nodes == 0 {
			n = max(n, e.From+1, e.To+1)
		}
	}
	g, err := algorithms.NewWeightedGraph(n, edges)
	return g, nil, err
}

func operationStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
