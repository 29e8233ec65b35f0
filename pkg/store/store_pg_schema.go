package store

import "context"

// migrate creates the necessary database tables
func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS louvain_runs (
		id UUID PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		options JSONB NOT NULL,
		best_level INTEGER NOT NULL,
		best_modularity DOUBLE PRECISION NOT NULL,
		best_membership BIGINT[] NOT NULL,
		names JSONB
	);

	CREATE TABLE IF NOT EXISTS louvain_levels (
		run_id UUID NOT NULL REFERENCES louvain_runs(id) ON DELETE CASCADE,
		level INTEGER NOT NULL,
		modularity DOUBLE PRECISION NOT NULL,
		node_count INTEGER NOT NULL,
		community_count INTEGER NOT NULL,
		passes INTEGER NOT NULL,
		moves INTEGER NOT NULL,
		membership BIGINT[] NOT NULL,
		PRIMARY KEY (run_id, level)
	);

	CREATE INDEX IF NOT EXISTS idx_louvain_runs_fingerprint ON louvain_runs(fingerprint, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_louvain_runs_created_at ON louvain_runs(created_at DESC);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
