package nnue

import "github.com/hailam/boomchess/internal/board"

// Network holds the quantized NNUE weights. Weights are stored [in][out] and
// scaled by QFactor; biases after the first layer are scaled by QFactor².
type Network struct {
	// Layer 1: InputSize -> L1Size (per perspective)
	L1Weights [InputSize][L1Size]int16
	L1Bias    [L1Size]int32

	// Layer 2: L1Size*2 (both perspectives) -> L2Size
	L2Weights [L1Size * 2][L2Size]int16
	L2Bias    [L2Size]int32

	// Output layer: L2Size -> 1
	OutputWeights [L2Size]int16
	OutputBias    int32
}

// NewNetwork creates a network with zero weights (must load weights or init random).
func NewNetwork() *Network {
	return &Network{}
}

// Forward computes the network output given an accumulator.
// Returns evaluation in centipawns from the perspective of the side to move.
func (n *Network) Forward(acc *Accumulator, sideToMove board.Color) int {
	stmAcc, nstmAcc := &acc.White, &acc.Black
	if sideToMove == board.Black {
		stmAcc, nstmAcc = nstmAcc, stmAcc
	}

	// Side to move first, opponent second.
	var l1Out [L1Size * 2]int32
	for i := 0; i < L1Size; i++ {
		l1Out[i] = ClippedReLU(int32(stmAcc[i]))
		l1Out[L1Size+i] = ClippedReLU(int32(nstmAcc[i]))
	}

	var l2Out [L2Size]int32
	for i := 0; i < L2Size; i++ {
		sum := n.L2Bias[i]
		for j := 0; j < L1Size*2; j++ {
			sum += l1Out[j] * int32(n.L2Weights[j][i])
		}
		l2Out[i] = ClippedReLU(sum / QFactor)
	}

	output := n.OutputBias
	for i := 0; i < L2Size; i++ {
		output += l2Out[i] * int32(n.OutputWeights[i])
	}
	output /= QFactor

	return int(output) * 100 / QFactor
}

// InitRandom initializes weights with small random values (for testing only).
func (n *Network) InitRandom(seed int64) {
	// Use a simple LCG for reproducibility
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state>>48)&0xFF) - 128
	}

	for i := 0; i < InputSize; i++ {
		for j := 0; j < L1Size; j++ {
			n.L1Weights[i][j] = next() >> 3
		}
	}
	for i := 0; i < L1Size; i++ {
		n.L1Bias[i] = int32(next()>>2) + 64
	}

	for i := 0; i < L1Size*2; i++ {
		for j := 0; j < L2Size; j++ {
			n.L2Weights[i][j] = next() >> 2
		}
	}
	for i := 0; i < L2Size; i++ {
		n.L2Bias[i] = int32(next()) * 64
	}

	for i := 0; i < L2Size; i++ {
		n.OutputWeights[i] = next()
	}
	n.OutputBias = 0
}
