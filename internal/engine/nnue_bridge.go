package engine

import (
	"github.com/hailam/boomchess/internal/board"
)

// IncrementalEvaluator is an evaluator that follows the board through the
// listener hooks instead of rescanning it on every call. Network evaluators
// keep one accumulator per ply this way.
type IncrementalEvaluator interface {
	Evaluator
	board.Listener

	// Reset rebuilds the evaluator state from scratch for pos.
	Reset(pos *board.Position)
}

// attachEvaluator wires an incremental evaluator to the board the search
// will mutate. Other evaluators need no wiring.
func attachEvaluator(pos *board.Position, eval Evaluator) {
	ie, ok := eval.(IncrementalEvaluator)
	if !ok {
		return
	}
	ie.Reset(pos)
	pos.SetListener(ie)
}
