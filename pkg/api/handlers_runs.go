package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	start := time.Now()
	snap, err := s.store.GetRun(r.Context(), id)
	s.metrics.RecordOperation("store", "get_run", operationStatus(err), time.Since(start))
	if err != nil {
		s.respondClusterError(w, err, "get run")
		return
	}

	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	start := time.Now()
	runs, err := s.store.ListRuns(r.Context(), limit)
	s.metrics.RecordOperation("store", "list_runs", operationStatus(err), time.Since(start))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "list runs"))
		return
	}

	s.respondJSON(w, http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}
