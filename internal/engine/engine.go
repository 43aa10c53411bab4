package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/boomchess/internal/board"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth       int           // Maximum depth (0 = no limit)
	Nodes       uint64        // Maximum nodes (0 = no limit)
	MoveTime    time.Duration // Hard time limit for this move (0 = no limit)
	OptimumTime time.Duration // No new depth is started past this (0 = no limit)
	Infinite    bool          // Search until stopped
}

// DefaultHashMB is the transposition table size used when none is configured.
const DefaultHashMB = 64

// Engine is the atomic chess engine: a searcher, its transposition table and
// the evaluator in use.
type Engine struct {
	searcher *Searcher
	tt       *TranspositionTable
	eval     Evaluator
	timeMan  *TimeManager
	hashMB   int

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new engine with the given transposition table size in
// MB and the full hand-crafted evaluator. A size of zero disables the table.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	eval := NewHandCrafted(EvalFull)
	return &Engine{
		searcher: NewSearcher(tt, eval),
		tt:       tt,
		eval:     eval,
		timeMan:  NewTimeManager(),
		hashMB:   ttSizeMB,
	}
}

// Search finds the best move for pos within limits. pos is not modified.
func (e *Engine) Search(pos *board.Position, limits SearchLimits) (SearchResult, error) {
	return e.searcher.Search(pos, limits, e.OnInfo)
}

// SearchUCI searches with a budget derived from the UCI clock parameters.
func (e *Engine) SearchUCI(pos *board.Position, limits UCILimits) (SearchResult, error) {
	return e.Search(pos, e.timeMan.SearchLimits(limits, pos.SideToMove, pos.Ply()))
}

// Prepare reserves the engine for the next search from the calling
// goroutine, so a Stop issued before the search goroutine runs is not lost.
func (e *Engine) Prepare() error {
	return e.searcher.Prepare()
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// State returns the state of the searcher.
func (e *Engine) State() SearchState {
	return e.searcher.State()
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.Reset()
	if h, ok := e.eval.(*HandCrafted); ok {
		h.pawns.Clear()
	}
}

// SetHashSize resizes the transposition table. It must not be called while a
// search is running.
func (e *Engine) SetHashSize(mb int) {
	e.tt.Resize(mb)
	e.hashMB = mb
}

// HashSize returns the configured transposition table size in MB.
func (e *Engine) HashSize() int {
	return e.hashMB
}

// SetEvaluator selects the evaluator for subsequent searches.
func (e *Engine) SetEvaluator(eval Evaluator) {
	e.eval = eval
	e.searcher.SetEvaluator(eval)
}

// Evaluator returns the evaluator in use.
func (e *Engine) Evaluator() Evaluator {
	return e.eval
}

// Evaluate returns the static evaluation of pos from the side to move's view.
func (e *Engine) Evaluate(pos *board.Position) int {
	if ie, ok := e.eval.(IncrementalEvaluator); ok {
		ie.Reset(pos)
	}
	return e.eval.Evaluate(pos)
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Perft(depth)
}

// PerftDivide returns the node count below every legal root move.
func (e *Engine) PerftDivide(pos *board.Position, depth int) []board.PerftEntry {
	return pos.PerftDivide(depth)
}

// PerftParallel splits the root moves of pos across workers goroutines.
// pos is not modified.
func (e *Engine) PerftParallel(ctx context.Context, pos *board.Position, depth, workers int) (uint64, error) {
	if depth <= 0 {
		return 1, nil
	}

	legal := pos.GenerateLegalMoves()
	var total atomic.Uint64

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, m := range legal.Slice() {
		m := m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := pos.Copy()
			p.MakeMove(m)
			total.Add(p.Perft(depth-1) * board.PerftWeight(m))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// MateIn returns the number of moves to a king explosion for a decisive
// score: positive when the side to move wins, negative when it loses.
func MateIn(score int) (int, bool) {
	switch {
	case score >= EvalMax-MaxPly:
		return (EvalMax - score + 1) / 2, true
	case score <= EvalMin+MaxPly:
		return -(score - EvalMin + 1) / 2, true
	}
	return 0, false
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if n, ok := MateIn(score); ok {
		if n > 0 {
			return fmt.Sprintf("Wins in %d", n)
		}
		return fmt.Sprintf("Loses in %d", -n)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
