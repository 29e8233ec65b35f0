package api

import (
	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/store"
)

// ClusterResponse is the result of POST /v1/cluster.
type ClusterResponse struct {
	RunID          string                    `json:"run_id"`
	Fingerprint    string                    `json:"fingerprint"`
	Nodes          int                       `json:"nodes"`
	Edges          int                       `json:"edges"`
	BestLevel      int                       `json:"best_level"`
	BestModularity float64                   `json:"best_modularity"`
	BestMembership []int                     `json:"best_membership"`
	Levels         []algorithms.LouvainLevel `json:"levels"`
	Names          []string                  `json:"names,omitempty"`
	Persisted      bool                      `json:"persisted"`
	DurationMs     float64                   `json:"duration_ms"`
}

// RunListResponse is the result of GET /v1/runs.
type RunListResponse struct {
	Runs  []store.RunSummary `json:"runs"`
	Count int                `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
}
