package engine

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hailam/boomchess/internal/board"
)

// ErrSearchInProgress is returned when a search is started while another one
// is still running on the same searcher.
var ErrSearchInProgress = errors.New("search already in progress")

// SearchState is the lifecycle state of a Searcher.
type SearchState int32

const (
	StateIdle SearchState = iota
	StateSearching
	StateCompleted
	StateCancelled
)

func (s SearchState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "idle"
}

// defaultDepth bounds iterative deepening when no depth limit is given.
const defaultDepth = MaxPly - 25

// SearchResult is the outcome of one search.
type SearchResult struct {
	BestMove  board.Move
	Score     int
	Depth     int
	Nodes     uint64
	Time      time.Duration
	PV        []board.Move
	Cancelled bool
}

// Searcher runs iterative deepening over a single Worker. The transposition
// table and the ordering tables persist across searches.
type Searcher struct {
	tt       *TranspositionTable
	orderer  *MoveOrderer
	worker   *Worker
	state    atomic.Int32
	stopFlag atomic.Bool
	prepared atomic.Bool
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable, eval Evaluator) *Searcher {
	s := &Searcher{
		tt:      tt,
		orderer: NewMoveOrderer(),
	}
	s.worker = NewWorker(tt, s.orderer, eval, &s.stopFlag)
	return s
}

// State returns the current lifecycle state.
func (s *Searcher) State() SearchState {
	return SearchState(s.state.Load())
}

// Stop signals the search to stop. It is safe to call from any goroutine.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset forgets killers and history and returns the searcher to idle.
func (s *Searcher) Reset() {
	if s.State() == StateSearching {
		return
	}
	s.orderer.Reset()
	s.state.Store(int32(StateIdle))
}

// SetEvaluator replaces the evaluator used by subsequent searches.
func (s *Searcher) SetEvaluator(eval Evaluator) {
	s.worker.eval = eval
}

// Nodes returns the number of nodes searched by the last search.
func (s *Searcher) Nodes() uint64 {
	return s.worker.Nodes()
}

// begin moves the searcher into the searching state.
func (s *Searcher) begin() bool {
	for {
		cur := s.state.Load()
		if SearchState(cur) == StateSearching {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(StateSearching)) {
			return true
		}
	}
}

// Prepare claims the searcher for the next Search and clears earlier stop
// requests. A Stop after Prepare cancels that search even if it has not
// started running yet.
func (s *Searcher) Prepare() error {
	if !s.begin() {
		return ErrSearchInProgress
	}
	s.stopFlag.Store(false)
	s.prepared.Store(true)
	return nil
}

// Search runs iterative deepening on a copy of pos, so the caller's position
// is never modified. onInfo, if set, is called after every completed depth.
// Without a preceding Prepare the searcher is claimed here.
func (s *Searcher) Search(pos *board.Position, limits SearchLimits, onInfo func(SearchInfo)) (SearchResult, error) {
	if !s.prepared.CompareAndSwap(true, false) {
		if err := s.Prepare(); err != nil {
			return SearchResult{}, err
		}
		s.prepared.Store(false)
	}

	start := time.Now()
	root := pos.Copy()
	attachEvaluator(root, s.worker.eval)

	var deadline time.Time
	if limits.MoveTime > 0 && !limits.Infinite {
		deadline = start.Add(limits.MoveTime)
		timer := time.AfterFunc(limits.MoveTime, s.Stop)
		defer timer.Stop()
	}
	s.worker.init(root, limits.Nodes, deadline)

	result := s.iterate(root, limits, start, onInfo)
	result.Nodes = s.worker.Nodes()
	result.Time = time.Since(start)

	if result.Cancelled {
		s.state.Store(int32(StateCancelled))
	} else {
		s.state.Store(int32(StateCompleted))
	}
	return result, nil
}

func (s *Searcher) iterate(root *board.Position, limits SearchLimits, start time.Time, onInfo func(SearchInfo)) SearchResult {
	legal := root.GenerateLegalMoves()
	switch legal.Len() {
	case 0:
		score := 0
		if root.InCheck() || !root.HasKing(root.SideToMove) {
			score = EvalMin
		}
		return SearchResult{BestMove: board.NoMove, Score: score}
	case 1:
		m := legal.Get(0)
		return SearchResult{BestMove: m, PV: []board.Move{m}}
	}

	maxDepth := defaultDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxPly-1)
	}

	result := SearchResult{BestMove: legal.Get(0)}
	for depth := 1; depth <= maxDepth; depth++ {
		s.orderer.Clear()

		move, score, complete := s.searchRoot(root, depth, result.BestMove)
		if move != board.NoMove && (complete || move != result.BestMove) {
			result.BestMove = move
			result.Score = score
		}
		if !complete {
			result.Cancelled = true
			break
		}
		result.Depth = depth
		result.PV = s.extractPV(root, move, depth)

		if onInfo != nil {
			onInfo(SearchInfo{
				Depth:    depth,
				SelDepth: max(s.worker.selDepth, depth),
				Score:    score,
				Nodes:    s.worker.Nodes(),
				Time:     time.Since(start),
				PV:       result.PV,
				HashFull: s.tt.HashFull(),
			})
		}

		// Won by blowing up the enemy king; deeper search cannot improve on it.
		if score >= EvalMax-MaxPly {
			break
		}
		if limits.OptimumTime > 0 && !limits.Infinite && time.Since(start) >= limits.OptimumTime {
			break
		}
	}
	return result
}

// searchRoot searches every legal root move to depth, trying prev first.
// A cancelled search reports complete=false and the best move among those
// fully searched, or NoMove when none finished.
func (s *Searcher) searchRoot(root *board.Position, depth int, prev board.Move) (board.Move, int, bool) {
	w := s.worker
	n := s.orderer.Generate(root, 0, false)
	s.orderer.SortTT(0, prev)

	alpha, beta := -Infinity, Infinity
	bestMove := board.NoMove
	bestScore := -Infinity

	for i := 0; i < n; i++ {
		m := s.orderer.Sorted(0, i)

		root.MakeMove(m)
		if !root.IsLegal() {
			root.UnmakeMove()
			continue
		}

		var score int
		if bestMove == board.NoMove {
			score = -w.alphaBeta(depth-1, 1, -beta, -alpha)
		} else {
			score = -w.alphaBeta(depth-1, 1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.alphaBeta(depth-1, 1, -beta, -alpha)
			}
		}
		root.UnmakeMove()

		if w.stopped() {
			return bestMove, bestScore, false
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			alpha = max(alpha, score)
		}
		if bestScore >= EvalMax-MaxPly {
			break
		}
	}

	s.tt.Store(root.Hash, depth, AdjustScoreToTT(bestScore, 0), BoundExact, bestMove)
	return bestMove, bestScore, true
}

// extractPV follows best moves through the transposition table.
func (s *Searcher) extractPV(root *board.Position, first board.Move, depth int) []board.Move {
	pv := []board.Move{first}
	root.MakeMove(first)
	made := 1

	seen := map[uint64]bool{root.Hash: true}
	for len(pv) < depth {
		entry, ok := s.tt.Probe(root.Hash)
		if !ok || entry.BestMove == board.NoMove {
			break
		}
		legal := root.GenerateLegalMoves()
		if !legal.Contains(entry.BestMove) {
			break
		}
		root.MakeMove(entry.BestMove)
		made++
		if seen[root.Hash] {
			break
		}
		seen[root.Hash] = true
		pv = append(pv, entry.BestMove)
	}

	for ; made > 0; made-- {
		root.UnmakeMove()
	}
	return pv
}
