package algorithms

import (
	"context"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
)

// neighborhood is the weight from one node into each adjacent community,
// with communities in ascending id order. The node's self-loop is excluded.
type neighborhood struct {
	communities []int
	weights     []float64
	toCurrent   float64
}

// gatherScratch is dense per-community accumulation space, reset after use
// through the touched list.
type gatherScratch struct {
	weight  []float64
	seen    []bool
	touched []int
}

func newGatherScratch(n int) *gatherScratch {
	return &gatherScratch{
		weight:  make([]float64, n),
		seen:    make([]bool, n),
		touched: make([]int, 0, 16),
	}
}

// moveWorkspace is scratch space shared by every pass and level of a run.
// Aggregated graphs never have more nodes than the input, so it is sized once.
type moveWorkspace struct {
	scratch *gatherScratch
	workers []*gatherScratch // one per pool worker, empty when sequential
	dirty   []int
	stamp   int
	cache   []neighborhood
}

func newMoveWorkspace(n int, opts LouvainOptions, pool *parallel.WorkerPool) *moveWorkspace {
	ws := &moveWorkspace{scratch: newGatherScratch(n)}
	if pool == nil {
		return ws
	}
	ws.workers = make([]*gatherScratch, pool.Workers())
	for i := range ws.workers {
		ws.workers[i] = newGatherScratch(n)
	}
	ws.dirty = make([]int, n)
	ws.cache = make([]neighborhood, min(opts.batchSize(pool.Workers()), n))
	return ws
}

// localMover runs local moving passes on one level's graph.
type localMover struct {
	g         *WeightedGraph
	opts      LouvainOptions
	logger    logging.Logger
	m         float64
	community []int
	totals    []float64
	ws        *moveWorkspace
}

func newLocalMover(g *WeightedGraph, opts LouvainOptions, logger logging.Logger, ws *moveWorkspace) *localMover {
	n := g.NodeCount()
	lm := &localMover{
		g:         g,
		opts:      opts,
		logger:    logger,
		m:         g.TotalWeight(),
		community: make([]int, n),
		totals:    make([]float64, n),
		ws:        ws,
	}
	for node := 0; node < n; node++ {
		lm.community[node] = node
		lm.totals[node] = g.Strength(node)
	}
	return lm
}

// OptimizeLevel runs local moving passes from the singleton partition of g
// until a pass makes no move. The returned membership is renumbered.
func OptimizeLevel(g *WeightedGraph, opts LouvainOptions) (*LevelPartition, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidGraph)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if g.TotalWeight() <= 0 {
		return nil, ErrUndefinedModularity
	}

	pool, err := opts.newPool()
	if err != nil {
		return nil, err
	}
	if pool != nil {
		defer pool.Close()
	}

	ws := newMoveWorkspace(g.NodeCount(), opts, pool)
	return optimizeLevel(context.Background(), g, opts, opts.logger(), pool, ws)
}

func optimizeLevel(ctx context.Context, g *WeightedGraph, opts LouvainOptions, logger logging.Logger, pool *parallel.WorkerPool, ws *moveWorkspace) (*LevelPartition, error) {
	lm := newLocalMover(g, opts, logger, ws)

	passes, moves := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			moved int
			err   error
		)
		if pool != nil && g.NodeCount() > 1 {
			moved, err = lm.parallelPass(pool)
		} else {
			moved = lm.sequentialPass()
		}
		if err != nil {
			return nil, err
		}

		passes++
		moves += moved
		if moved == 0 {
			break
		}

		if passes >= opts.MaxPassesPerLevel {
			if !opts.TruncateOnPassBound {
				return nil, fmt.Errorf("%w: %d passes on %d nodes, %d moves in last pass",
					ErrExceededPassBound, passes, g.NodeCount(), moved)
			}
			logger.Warn("local moves truncated at pass bound",
				logging.Passes(passes),
				logging.Moves(moved),
				logging.Nodes(g.NodeCount()))
			break
		}
	}

	q, err := Modularity(g, lm.community)
	if err != nil {
		return nil, err
	}
	membership, k := Renumber(lm.community)

	return &LevelPartition{
		Membership:     membership,
		CommunityCount: k,
		Modularity:     q,
		Passes:         passes,
		Moves:          moves,
	}, nil
}

// sequentialPass visits nodes in ascending id and moves each to its best
// neighboring community.
func (lm *localMover) sequentialPass() int {
	moved := 0
	for node := 0; node < lm.g.NodeCount(); node++ {
		nb := lm.gather(node, lm.ws.scratch)
		if target := lm.bestMove(node, nb); target != lm.community[node] {
			lm.commit(node, target)
			moved++
		}
	}
	return moved
}

// parallelPass gathers neighbor-community weights for a batch of nodes on the
// pool against the partition at batch start, then decides and commits moves
// serially in ascending id. A node whose neighbor moved earlier in the batch
// is re-gathered, so the outcome equals sequentialPass.
func (lm *localMover) parallelPass(pool *parallel.WorkerPool) (int, error) {
	n := lm.g.NodeCount()
	ws := lm.ws
	batch := min(lm.opts.batchSize(pool.Workers()), len(ws.cache))
	dirty, cache := ws.dirty, ws.cache

	moved := 0
	for lo := 0; lo < n; lo += batch {
		hi := lo + batch
		if hi > n {
			hi = n
		}
		ws.stamp++
		stamp := ws.stamp

		err := pool.ForEachChunk(hi-lo, func(chunk, a, b int) {
			scratch := ws.workers[chunk]
			for i := a; i < b; i++ {
				cache[i] = lm.gather(lo+i, scratch)
			}
		})
		if err != nil {
			return moved, err
		}

		for node := lo; node < hi; node++ {
			nb := cache[node-lo]
			if dirty[node] == stamp {
				nb = lm.gather(node, ws.scratch)
			}
			target := lm.bestMove(node, nb)
			if target == lm.community[node] {
				continue
			}
			lm.commit(node, target)
			moved++
			for _, nbr := range lm.g.Neighbors(node) {
				dirty[nbr.Node] = stamp
			}
		}
	}
	return moved, nil
}

// gather sums the weight from node into each neighboring community.
func (lm *localMover) gather(node int, s *gatherScratch) neighborhood {
	for _, nbr := range lm.g.Neighbors(node) {
		if nbr.Node == node {
			continue
		}
		c := lm.community[nbr.Node]
		if !s.seen[c] {
			s.seen[c] = true
			s.touched = append(s.touched, c)
		}
		s.weight[c] += nbr.Weight
	}

	sort.Ints(s.touched)
	nb := neighborhood{
		communities: make([]int, 0, len(s.touched)),
		weights:     make([]float64, 0, len(s.touched)),
	}
	current := lm.community[node]
	for _, c := range s.touched {
		if c == current {
			nb.toCurrent = s.weight[c]
		}
		nb.communities = append(nb.communities, c)
		nb.weights = append(nb.weights, s.weight[c])
		s.weight[c] = 0
		s.seen[c] = false
	}
	s.touched = s.touched[:0]
	return nb
}

// bestMove returns the community node should join. Staying has gain 0 and a
// candidate must beat the best so far by more than epsilon, so ties keep the
// node in place or pick the lowest community id.
func (lm *localMover) bestMove(node int, nb neighborhood) int {
	current := lm.community[node]
	strength := lm.g.Strength(node)

	best, bestGain := current, 0.0
	for i, c := range nb.communities {
		if c == current {
			continue
		}
		gain := MoveGain(strength, nb.weights[i], nb.toCurrent, lm.totals[current], lm.totals[c], lm.m)
		if gain > bestGain+lm.opts.Epsilon {
			best, bestGain = c, gain
		}
	}
	return best
}

func (lm *localMover) commit(node, target int) {
	strength := lm.g.Strength(node)
	lm.totals[lm.community[node]] -= strength
	lm.totals[target] += strength
	lm.community[node] = target
}
