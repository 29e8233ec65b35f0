package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	runs map[uuid.UUID]*snapshot.Snapshot
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory run store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[uuid.UUID]*snapshot.Snapshot),
	}
}

// SaveRun stores snap, replacing any run with the same id.
func (s *MemoryStore) SaveRun(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil || snap.Result == nil {
		return fmt.Errorf("failed to save run: snapshot has no result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[snap.RunID] = snap
	return nil
}

// GetRun retrieves a run by id
func (s *MemoryStore) GetRun(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return snap, nil
}

func (s *MemoryStore) FindRunByFingerprint(ctx context.Context, fingerprint string) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *snapshot.Snapshot
	for _, snap := range s.runs {
		if snap.Fingerprint != fingerprint {
			continue
		}
		if latest == nil || snap.CreatedAt.After(latest.CreatedAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: fingerprint %s", ErrRunNotFound, fingerprint)
	}
	return latest, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	summaries := make([]RunSummary, 0, len(s.runs))
	for _, snap := range s.runs {
		summaries = append(summaries, Summarize(snap))
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].RunID.String() < summaries[j].RunID.String()
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if n := listLimit(limit); len(summaries) > n {
		summaries = summaries[:n]
	}
	return summaries, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
