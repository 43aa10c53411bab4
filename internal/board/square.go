// Package board implements the atomic chess position on a 0x88 board.
package board

import "fmt"

// Square is an index into the 128-slot 0x88 board: rank<<4 | file.
// Any index with a bit of 0x88 set lies off the board, which also holds
// for the results of stepping off an edge with one of the direction deltas.
type Square int

// Square constants for the 64 playable squares, one block per rank.
const (
	A1 Square = iota + 0x00
	B1
	C1
	D1
	E1
	F1
	G1
	H1
)

const (
	A2 Square = iota + 0x10
	B2
	C2
	D2
	E2
	F2
	G2
	H2
)

const (
	A3 Square = iota + 0x20
	B3
	C3
	D3
	E3
	F3
	G3
	H3
)

const (
	A4 Square = iota + 0x30
	B4
	C4
	D4
	E4
	F4
	G4
	H4
)

const (
	A5 Square = iota + 0x40
	B5
	C5
	D5
	E5
	F5
	G5
	H5
)

const (
	A6 Square = iota + 0x50
	B6
	C6
	D6
	E6
	F6
	G6
	H6
)

const (
	A7 Square = iota + 0x60
	B7
	C7
	D7
	E7
	F7
	G7
	H7
)

const (
	A8 Square = iota + 0x70
	B8
	C8
	D8
	E8
	F8
	G8
	H8
)

// NoSquare marks an absent square (no en passant target, missing king).
const NoSquare Square = -1

// Direction deltas on the 0x88 board.
const (
	Up    = 16
	Down  = -16
	Right = 1
	Left  = -1
)

var (
	knightOffsets    = [8]Square{Up*2 + Right, Up*2 + Left, Down*2 + Right, Down*2 + Left, Up + Right*2, Up + Left*2, Down + Right*2, Down + Left*2}
	kingOffsets      = [8]Square{Up, Down, Right, Left, Up + Right, Up + Left, Down + Right, Down + Left}
	rookDirections   = [4]Square{Up, Down, Right, Left}
	bishopDirections = [4]Square{Up + Right, Up + Left, Down + Right, Down + Left}
)

// OnBoard reports whether the square is a playable square.
func (sq Square) OnBoard() bool {
	return sq&0x88 == 0
}

// File returns the file of the square (0-7, where 0=a).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the rank of the square (0-7, where 0 is the first rank).
func (sq Square) Rank() int {
	return int(sq) >> 4
}

// RelativeRank returns the rank from the given color's point of view.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// Index64 maps the square onto the dense 0..63 layout (a1=0, h8=63).
func (sq Square) Index64() int {
	return (int(sq) + int(sq)&7) >> 1
}

// FromIndex64 is the inverse of Index64.
func FromIndex64(i int) Square {
	return Square(i + i&^7)
}

// String returns the algebraic name of the square (e.g. "e4").
func (sq Square) String() string {
	if !sq.OnBoard() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// NewSquare creates a square from file and rank (0-indexed).
func NewSquare(file, rank int) Square {
	return Square(rank<<4 | file)
}

// ParseSquare parses algebraic notation (e.g. "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}

	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'

	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}

	return NewSquare(file, rank), nil
}

// Distance returns the Chebyshev (king-step) distance between two squares.
func Distance(a, b Square) int {
	df := a.File() - b.File()
	if df < 0 {
		df = -df
	}
	dr := a.Rank() - b.Rank()
	if dr < 0 {
		dr = -dr
	}
	return max(df, dr)
}
