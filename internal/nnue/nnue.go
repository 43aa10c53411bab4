// Package nnue implements NNUE (Efficiently Updatable Neural Network) evaluation
// for atomic chess.
package nnue

import (
	"github.com/hailam/boomchess/internal/board"
	"github.com/hailam/boomchess/internal/engine"
)

// Network architecture constants
const (
	// One feature per (square, piece type, relative color); kings included.
	InputSize = 64 * 6 * 2 // 768

	L1Size = 128 // per perspective, so 256 after concatenation
	L2Size = 32

	// QFactor is the fixed point scale of weights and activations.
	QFactor = 256
)

// evalLimit keeps network output clear of the win scores.
const evalLimit = engine.EvalMax / 2

var _ engine.IncrementalEvaluator = (*Evaluator)(nil)

// FeatureIndex returns the input feature of piece p on sq as seen from
// perspective. Black sees the board flipped and the colors swapped.
func FeatureIndex(perspective board.Color, sq board.Square, p board.Piece) int {
	s := sq.Index64()
	rel := 0
	if p.Color != perspective {
		rel = 1
	}
	if perspective == board.Black {
		s ^= 56
	}
	return s*12 + (int(p.Type)-1)*2 + rel
}

// ClippedReLU clamps x to [0, QFactor].
func ClippedReLU(x int32) int32 {
	return min(max(x, 0), QFactor)
}

// Evaluator evaluates positions with a network, following the board through
// the listener hooks to keep its accumulators current.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator creates an evaluator for net.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{
		net:   net,
		stack: NewAccumulatorStack(),
	}
}

// LoadEvaluator reads a network file and wraps it in an evaluator.
// If path is empty, uses random weights for testing.
func LoadEvaluator(path string) (*Evaluator, error) {
	net := NewNetwork()
	if path == "" {
		net.InitRandom(12345)
		return NewEvaluator(net), nil
	}
	if err := net.Load(path); err != nil {
		return nil, err
	}
	return NewEvaluator(net), nil
}

// Network returns the weights used by the evaluator.
func (e *Evaluator) Network() *Network {
	return e.net
}

// Evaluate returns the evaluation in centipawns from the side to move's
// perspective. A side without a king has lost.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	us := pos.SideToMove
	if !pos.HasKing(us) {
		return engine.EvalMin
	}
	if !pos.HasKing(us.Other()) {
		return engine.EvalMax
	}

	acc := e.stack.Current()
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
	}
	score := e.net.Forward(acc, us)
	return min(max(score, -evalLimit), evalLimit)
}

// Reset rebuilds the accumulator stack from scratch for pos.
func (e *Evaluator) Reset(pos *board.Position) {
	e.stack.Reset()
	e.stack.Current().ComputeFull(pos, e.net)
}

// Push saves accumulator state (called before a move changes the board).
func (e *Evaluator) Push() {
	e.stack.Push()
}

// Pop restores accumulator state (called when the move is taken back).
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

func (e *Evaluator) PieceAdded(sq board.Square, p board.Piece) {
	e.stack.Current().Add(e.net, sq, p)
}

func (e *Evaluator) PieceRemoved(sq board.Square, p board.Piece) {
	e.stack.Current().Remove(e.net, sq, p)
}

func (e *Evaluator) PieceMoved(from, to board.Square, p board.Piece) {
	acc := e.stack.Current()
	acc.Remove(e.net, from, p)
	acc.Add(e.net, to, p)
}
