package algorithms

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
)

const (
	// DefaultEpsilon is the minimum gain for a node move and the minimum
	// modularity improvement for a new level.
	DefaultEpsilon = 1e-12
	// DefaultMaxPassesPerLevel bounds local moving passes on one level.
	DefaultMaxPassesPerLevel = 1000
	// DefaultBatchSizePerWorker is the parallel batch size per worker when
	// BatchSize is zero.
	DefaultBatchSizePerWorker = 256
)

// LouvainOptions configures Louvain clustering
type LouvainOptions struct {
	Epsilon           float64
	MaxPassesPerLevel int
	// TruncateOnPassBound keeps the partition reached at the pass bound
	// instead of failing with ErrExceededPassBound.
	TruncateOnPassBound bool
	Workers             int // <= 1 runs sequentially, capped at GOMAXPROCS
	BatchSize           int // Nodes per parallel batch, 0 for a default

	Logger   logging.Logger    // nil discards logs
	Metrics  *metrics.Registry // nil disables metrics
	Observer func(LouvainLevel)
}

// DefaultLouvainOptions returns default Louvain configuration
func DefaultLouvainOptions() LouvainOptions {
	return LouvainOptions{
		Epsilon:           DefaultEpsilon,
		MaxPassesPerLevel: DefaultMaxPassesPerLevel,
		Workers:           1,
	}
}

// ParallelLouvainOptions returns defaults with one worker per CPU.
func ParallelLouvainOptions() LouvainOptions {
	opts := DefaultLouvainOptions()
	opts.Workers = runtime.NumCPU()
	return opts
}

// Validate checks option ranges.
func (o LouvainOptions) Validate() error {
	if o.Epsilon < 0 || math.IsNaN(o.Epsilon) || math.IsInf(o.Epsilon, 0) {
		return fmt.Errorf("%w: epsilon must be finite and non-negative, got %v", ErrInvalidOptions, o.Epsilon)
	}
	if o.MaxPassesPerLevel < 1 {
		return fmt.Errorf("%w: max passes per level must be at least 1, got %d", ErrInvalidOptions, o.MaxPassesPerLevel)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidOptions, o.Workers)
	}
	if o.Workers > parallel.MaxWorkers {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, parallel.ErrTooManyWorkers)
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must not be negative, got %d", ErrInvalidOptions, o.BatchSize)
	}
	return nil
}

func (o LouvainOptions) logger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNopLogger()
	}
	return o.Logger
}

func (o LouvainOptions) batchSize(workers int) int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSizePerWorker * workers
}

// effectiveWorkers caps Workers at GOMAXPROCS; each worker owns a scratch
// buffer the size of the input graph.
func (o LouvainOptions) effectiveWorkers() int {
	return min(o.Workers, runtime.GOMAXPROCS(0))
}

func (o LouvainOptions) newPool() (*parallel.WorkerPool, error) {
	workers := o.effectiveWorkers()
	if workers <= 1 {
		return nil, nil
	}
	return parallel.NewWorkerPoolWithLogger(workers, o.logger())
}

// Cluster runs multilevel Louvain on g with default options apart from
// epsilon and the per-level pass bound.
func Cluster(g *WeightedGraph, epsilon float64, maxPassesPerLevel int) (*LouvainResult, error) {
	opts := DefaultLouvainOptions()
	opts.Epsilon = epsilon
	opts.MaxPassesPerLevel = maxPassesPerLevel
	return ClusterWithOptions(g, opts)
}

// ClusterWithOptions runs multilevel Louvain on g.
func ClusterWithOptions(g *WeightedGraph, opts LouvainOptions) (*LouvainResult, error) {
	return ClusterContext(context.Background(), g, opts)
}

// ClusterContext runs multilevel Louvain on g, checking ctx between passes.
//
// Each level optimizes local moves on the current graph, records the
// partition of the original nodes, then aggregates communities into the
// next level's nodes. It stops when a level merges nothing or improves
// modularity by no more than epsilon. The first level is always recorded.
func ClusterContext(ctx context.Context, g *WeightedGraph, opts LouvainOptions) (*LouvainResult, error) {
	start := time.Now()
	result, err := clusterLevels(ctx, g, opts)
	if opts.Metrics != nil {
		status := "success"
		if err != nil {
			status = ErrorKind(err)
		}
		opts.Metrics.RecordLouvainRun(status, time.Since(start), result.levelCount(), result.bestModularity())
	}
	return result, err
}

func clusterLevels(ctx context.Context, g *WeightedGraph, opts LouvainOptions) (*LouvainResult, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidGraph)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if g.TotalWeight() <= 0 {
		return nil, ErrUndefinedModularity
	}

	logger := opts.logger().With(logging.Component("louvain"))
	timer := logging.StartTimer(logger, "louvain run",
		logging.Nodes(g.NodeCount()),
		logging.Edges(g.EdgeCount()))

	pool, err := opts.newPool()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if pool != nil {
		defer pool.Close()
	}

	n := g.NodeCount()
	ws := newMoveWorkspace(n, opts, pool)
	mapping := make([]int, n)
	for node := range mapping {
		mapping[node] = node
	}

	result := &LouvainResult{}
	current := g
	prevQ := 0.0

	for level := 0; ; level++ {
		levelStart := time.Now()
		part, err := optimizeLevel(ctx, current, opts, logger, pool, ws)
		if err != nil {
			err = fmt.Errorf("level %d: %w", level, err)
			timer.Finish(err)
			return nil, err
		}

		merged := part.CommunityCount < current.NodeCount()
		if !merged && level > 0 {
			logger.Debug("level made no merges", logging.LevelNumber(level))
			break
		}

		membership := make([]int, n)
		for node := range membership {
			membership[node] = part.Membership[mapping[node]]
		}

		record := LouvainLevel{
			Level:          level,
			Modularity:     part.Modularity,
			Membership:     membership,
			NodeCount:      current.NodeCount(),
			CommunityCount: part.CommunityCount,
			Passes:         part.Passes,
			Moves:          part.Moves,
		}
		result.Levels = append(result.Levels, record)

		logger.Debug("level recorded",
			logging.LevelNumber(level),
			logging.Modularity(record.Modularity),
			logging.Communities(record.CommunityCount),
			logging.Passes(record.Passes),
			logging.Moves(record.Moves))
		if opts.Metrics != nil {
			opts.Metrics.RecordLouvainLevel(record.NodeCount, record.CommunityCount, record.Passes, record.Moves, time.Since(levelStart))
		}
		if opts.Observer != nil {
			opts.Observer(record)
		}

		if !merged {
			break
		}
		if level > 0 && record.Modularity <= prevQ+opts.Epsilon {
			break
		}

		next, err := Aggregate(current, part.Membership, part.CommunityCount)
		if err != nil {
			err = fmt.Errorf("level %d aggregation: %w", level, err)
			timer.Finish(err)
			return nil, err
		}
		current = next
		mapping = membership
		prevQ = record.Modularity
	}

	result.selectBest(opts.Epsilon)
	timer.Finish(nil)
	return result, nil
}

func (r *LouvainResult) levelCount() int {
	if r == nil {
		return 0
	}
	return len(r.Levels)
}

func (r *LouvainResult) bestModularity() float64 {
	if r == nil {
		return 0
	}
	return r.BestModularity
}
