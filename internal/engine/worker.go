package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/boomchess/internal/board"
)

// Search constants
const (
	MaxPly   = 128
	Infinity = EvalMax + 1

	nullMoveR = 2

	// The deadline is polled once every deadlineMask+1 nodes.
	deadlineMask = 1<<14 - 1
)

// Worker runs alpha-beta on a position it owns for the duration of a search.
type Worker struct {
	pos     *board.Position
	eval    Evaluator
	orderer *MoveOrderer
	tt      *TranspositionTable

	stopFlag  *atomic.Bool
	nodes     uint64
	nodeLimit uint64
	deadline  time.Time
	selDepth  int
}

// NewWorker creates a search worker sharing tt, orderer and the stop flag.
func NewWorker(tt *TranspositionTable, orderer *MoveOrderer, eval Evaluator, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		eval:     eval,
		orderer:  orderer,
		tt:       tt,
		stopFlag: stopFlag,
	}
}

// Nodes returns the number of nodes searched.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// init prepares the worker for a search on pos.
func (w *Worker) init(pos *board.Position, nodeLimit uint64, deadline time.Time) {
	w.pos = pos
	w.nodes = 0
	w.selDepth = 0
	w.nodeLimit = nodeLimit
	w.deadline = deadline
}

// canSearch reports whether the search may continue, raising the stop flag
// once the node or time budget runs out.
func (w *Worker) canSearch() bool {
	if w.stopFlag.Load() {
		return false
	}
	if w.nodeLimit > 0 && w.nodes >= w.nodeLimit {
		w.stopFlag.Store(true)
		return false
	}
	if !w.deadline.IsZero() && w.nodes&deadlineMask == 0 && time.Now().After(w.deadline) {
		w.stopFlag.Store(true)
		return false
	}
	return true
}

// stopped returns true if search should stop.
func (w *Worker) stopped() bool {
	return w.stopFlag.Load()
}

func (w *Worker) evaluate() int {
	return w.eval.Evaluate(w.pos)
}

// alphaBeta searches the position below the root with a fail-soft principal
// variation search. Scores are from the side to move's perspective.
func (w *Worker) alphaBeta(depth, ply, alpha, beta int) int {
	if !w.canSearch() {
		return 0
	}
	w.nodes++

	pos := w.pos
	if pos.IsRepetition() || pos.IsFiftyMoveDraw() {
		return 0
	}
	if ply >= MaxPly-1 {
		return w.evaluate()
	}

	var ttMove board.Move
	if entry, ok := w.tt.Probe(pos.Hash); ok {
		ttMove = entry.BestMove
		if int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Bound {
			case BoundExact:
				return score
			case BoundLower:
				alpha = max(alpha, score)
			case BoundUpper:
				beta = min(beta, score)
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	us := pos.SideToMove
	inCheck := pos.InCheck()
	isPV := beta-alpha > 1
	alphaOrig := alpha

	// Null move pruning
	if !inCheck && !pos.LastMove().IsNull() && depth > nullMoveR && !isPV && pos.HasNonPawnMaterial(us) {
		pos.MakeNullMove()
		score := -w.alphaBeta(depth-nullMoveR-1, ply+1, -beta, -beta+1)
		pos.UnmakeNullMove()

		if w.stopped() {
			return 0
		}
		if score >= beta {
			// A passed turn cannot prove a forced win.
			if score >= EvalMax-MaxPly {
				return beta
			}
			return score
		}
	}

	n := w.orderer.Generate(pos, ply, false)
	w.orderer.SortTT(ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	legal := 0

	for i := 0; i < n; i++ {
		m := w.orderer.Sorted(ply, i)

		pos.MakeMove(m)
		if !pos.IsLegal() {
			pos.UnmakeMove()
			continue
		}
		legal++

		var score int
		if legal == 1 {
			score = -w.alphaBeta(depth-1, ply+1, -beta, -alpha)
		} else {
			score = -w.alphaBeta(depth-1, ply+1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.alphaBeta(depth-1, ply+1, -beta, -alpha)
			}
		}
		pos.UnmakeMove()

		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
			}
		}

		if alpha >= beta {
			w.orderer.MarkKiller(ply, m)
			w.orderer.UpdateHistory(us, m, depth)
			break
		}
	}

	if legal == 0 {
		if inCheck || !pos.HasKing(us) {
			return EvalMin + ply
		}
		return 0
	}

	bound := BoundExact
	if bestScore <= alphaOrig {
		bound = BoundUpper
	} else if bestScore >= beta {
		bound = BoundLower
	}
	w.tt.Store(pos.Hash, depth, AdjustScoreToTT(bestScore, ply), bound, bestMove)

	return bestScore
}

// quiescence resolves captures until the position is quiet. When in check
// every move is tried since there may be no capture that escapes.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if !w.canSearch() {
		return 0
	}
	w.nodes++
	if ply > w.selDepth {
		w.selDepth = ply
	}

	pos := w.pos
	if !pos.HasKing(pos.SideToMove) {
		return EvalMin + ply
	}
	if ply >= MaxPly-1 {
		return w.evaluate()
	}

	inCheck := pos.InCheck()

	// Stand pat
	bestScore := w.evaluate()
	if bestScore >= beta {
		return bestScore
	}
	if bestScore > alpha {
		alpha = bestScore
	}

	n := w.orderer.Generate(pos, ply, !inCheck)
	legal := 0

	for i := 0; i < n; i++ {
		m := w.orderer.Sorted(ply, i)
		if !inCheck && !w.orderer.IsGoodCapture(ply, i) {
			break
		}

		pos.MakeMove(m)
		if !pos.IsLegal() {
			pos.UnmakeMove()
			continue
		}
		legal++

		score := -w.quiescence(ply+1, -beta, -alpha)
		pos.UnmakeMove()

		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
			}
		}
		if alpha >= beta {
			break
		}
	}

	if inCheck && legal == 0 {
		return EvalMin + ply
	}
	return bestScore
}
