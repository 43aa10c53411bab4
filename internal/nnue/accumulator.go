package nnue

import "github.com/hailam/boomchess/internal/board"

// Accumulator stores the first layer sums for both perspectives.
type Accumulator struct {
	White [L1Size]int16
	Black [L1Size]int16

	// Track if accumulator is computed
	Computed bool
}

// AccumulatorStack keeps one accumulator per ply of the searched line.
type AccumulatorStack struct {
	stack []Accumulator
	top   int
}

// NewAccumulatorStack creates a new accumulator stack.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{stack: make([]Accumulator, 1, 256)}
}

// Push copies the current accumulator one ply up.
func (s *AccumulatorStack) Push() {
	if s.top+1 == len(s.stack) {
		s.stack = append(s.stack, Accumulator{})
	}
	s.stack[s.top+1] = s.stack[s.top]
	s.top++
}

// Pop restores previous accumulator state.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the current accumulator.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Depth returns the number of pushed plies.
func (s *AccumulatorStack) Depth() int {
	return s.top
}

// Reset resets the stack to initial state.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0].Computed = false
}

// ComputeFull computes the accumulator from scratch for a position.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	for i := 0; i < L1Size; i++ {
		acc.White[i] = int16(net.L1Bias[i])
		acc.Black[i] = int16(net.L1Bias[i])
	}
	acc.Computed = true

	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			p := board.NewPiece(pt, c)
			for _, sq := range pos.PieceSquares(c, pt) {
				acc.Add(net, sq, p)
			}
		}
	}
}

// Add activates the feature of p on sq in both perspectives.
func (acc *Accumulator) Add(net *Network, sq board.Square, p board.Piece) {
	if !acc.Computed {
		return
	}
	w := &net.L1Weights[FeatureIndex(board.White, sq, p)]
	b := &net.L1Weights[FeatureIndex(board.Black, sq, p)]
	for i := 0; i < L1Size; i++ {
		acc.White[i] += w[i]
		acc.Black[i] += b[i]
	}
}

// Remove deactivates the feature of p on sq in both perspectives.
func (acc *Accumulator) Remove(net *Network, sq board.Square, p board.Piece) {
	if !acc.Computed {
		return
	}
	w := &net.L1Weights[FeatureIndex(board.White, sq, p)]
	b := &net.L1Weights[FeatureIndex(board.Black, sq, p)]
	for i := 0; i < L1Size; i++ {
		acc.White[i] -= w[i]
		acc.Black[i] -= b[i]
	}
}
