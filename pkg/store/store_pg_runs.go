package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

const selectRun = `
	SELECT id::text, fingerprint, created_at, nodes, edges, options, best_level, best_modularity, best_membership, names
	FROM louvain_runs
`

// SaveRun stores a run and its levels in one transaction
func (s *PGStore) SaveRun(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil || snap.Result == nil {
		return fmt.Errorf("failed to save run: snapshot has no result")
	}

	optionsJSON, err := json.Marshal(snap.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	namesJSON, err := json.Marshal(snap.Names)
	if err != nil {
		return fmt.Errorf("failed to marshal names: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO louvain_runs (id, fingerprint, created_at, nodes, edges, options, best_level, best_modularity, best_membership, names)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		snap.RunID.String(),
		snap.Fingerprint,
		snap.CreatedAt,
		snap.Nodes,
		snap.Edges,
		optionsJSON,
		snap.Result.BestLevel,
		snap.Result.BestModularity,
		toInt64s(snap.Result.BestMembership),
		namesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, level := range snap.Result.Levels {
		batch.Queue(`
			INSERT INTO louvain_levels (run_id, level, modularity, node_count, community_count, passes, moves, membership)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
		`,
			snap.RunID.String(),
			level.Level,
			level.Modularity,
			level.NodeCount,
			level.CommunityCount,
			level.Passes,
			level.Moves,
			toInt64s(level.Membership),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert levels: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("run saved",
		logging.RunID(snap.RunID.String()),
		logging.Fingerprint(snap.Fingerprint),
		logging.Count(len(snap.Result.Levels)))
	return nil
}

// GetRun retrieves a run with all its levels
func (s *PGStore) GetRun(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	snap, err := s.scanRun(s.pool.QueryRow(ctx, selectRun+`WHERE id = $1::uuid`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return s.withLevels(ctx, snap)
}

// FindRunByFingerprint retrieves the most recent run of a graph
func (s *PGStore) FindRunByFingerprint(ctx context.Context, fingerprint string) (*snapshot.Snapshot, error) {
	snap, err := s.scanRun(s.pool.QueryRow(ctx,
		selectRun+`WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: fingerprint %s", ErrRunNotFound, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return s.withLevels(ctx, snap)
}

// ListRuns returns run summaries, newest first
func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.fingerprint, r.created_at, r.nodes, r.edges, r.best_level, r.best_modularity,
		       (SELECT count(*) FROM louvain_levels l WHERE l.run_id = r.id)
		FROM louvain_runs r
		ORDER BY r.created_at DESC, r.id
		LIMIT $1
	`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0)
	for rows.Next() {
		var sum RunSummary
		var id string
		var levels int64
		if err := rows.Scan(&id, &sum.Fingerprint, &sum.CreatedAt, &sum.Nodes, &sum.Edges,
			&sum.BestLevel, &sum.BestModularity, &levels); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		sum.LevelCount = int(levels)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return summaries, nil
}

func (s *PGStore) scanRun(row pgx.Row) (*snapshot.Snapshot, error) {
	snap := &snapshot.Snapshot{Result: &algorithms.LouvainResult{}}
	var id string
	var optionsJSON, namesJSON []byte
	var best []int64

	err := row.Scan(
		&id,
		&snap.Fingerprint,
		&snap.CreatedAt,
		&snap.Nodes,
		&snap.Edges,
		&optionsJSON,
		&snap.Result.BestLevel,
		&snap.Result.BestModularity,
		&best,
		&namesJSON,
	)
	if err != nil {
		return nil, err
	}

	if snap.RunID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if err := json.Unmarshal(optionsJSON, &snap.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if len(namesJSON) > 0 {
		if err := json.Unmarshal(namesJSON, &snap.Names); err != nil {
			return nil, fmt.Errorf("failed to unmarshal names: %w", err)
		}
	}
	snap.Result.BestMembership = toInts(best)
	return snap, nil
}

func (s *PGStore) withLevels(ctx context.Context, snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT level, modularity, node_count, community_count, passes, moves, membership
		FROM louvain_levels
		WHERE run_id = $1::uuid
		ORDER BY level
	`, snap.RunID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level algorithms.LouvainLevel
		var membership []int64
		if err := rows.Scan(&level.Level, &level.Modularity, &level.NodeCount, &level.CommunityCount,
			&level.Passes, &level.Moves, &membership); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		level.Membership = toInts(membership)
		snap.Result.Levels = append(snap.Result.Levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get levels: %w", err)
	}

	return snap, nil
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
