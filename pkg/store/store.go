// Package store persists clustering runs for lookup by id or graph fingerprint.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit is used when ListRuns is called with a non-positive limit.
const DefaultListLimit = 50

// RunSummary is a run without its level memberships.
type RunSummary struct {
	RunID          uuid.UUID `json:"run_id"`
	Fingerprint    string    `json:"fingerprint"`
	CreatedAt      time.Time `json:"created_at"`
	Nodes          int       `json:"nodes"`
	Edges          int       `json:"edges"`
	BestLevel      int       `json:"best_level"`
	BestModularity float64   `json:"best_modularity"`
	LevelCount     int       `json:"level_count"`
}

// RunStore defines the interface for run persistence
type RunStore interface {
	SaveRun(ctx context.Context, snap *snapshot.Snapshot) error
	GetRun(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error)
	// FindRunByFingerprint returns the most recent run of a graph.
	FindRunByFingerprint(ctx context.Context, fingerprint string) (*snapshot.Snapshot, error)
	// ListRuns returns summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Ping(ctx context.Context) error
	Close() error
}

// Summarize builds the summary of snap.
func Summarize(snap *snapshot.Snapshot) RunSummary {
	s := RunSummary{
		RunID:       snap.RunID,
		Fingerprint: snap.Fingerprint,
		CreatedAt:   snap.CreatedAt,
		Nodes:       snap.Nodes,
		Edges:       snap.Edges,
	}
	if snap.Result != nil {
		s.BestLevel = snap.Result.BestLevel
		s.BestModularity = snap.Result.BestModularity
		s.LevelCount = len(snap.Result.Levels)
	}
	return s
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
