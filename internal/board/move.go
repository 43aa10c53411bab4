package board

import (
	"errors"
	"fmt"
)

// MoveFlag describes what a move does besides relocating a piece.
type MoveFlag uint16

// Move flags
const (
	FlagCapture          MoveFlag = 1 << iota // captures, so the destination explodes
	FlagDoublePawn                            // two-square pawn push
	FlagPawnMove                              // any pawn move; resets the half-move clock
	FlagEnPassant                             // en passant capture
	FlagKnightPromotion
	FlagBishopPromotion
	FlagRookPromotion
	FlagQueenPromotion
	FlagCastleKingSide                        // O-O
	FlagCastleQueenSide                       // O-O-O
	FlagNull                                  // pass; search only
)

// Flag groups.
const (
	FlagPromotion     = FlagKnightPromotion | FlagBishopPromotion | FlagRookPromotion | FlagQueenPromotion
	FlagCastle        = FlagCastleKingSide | FlagCastleQueenSide
	FlagNonRepeatable = FlagCastle | FlagPawnMove | FlagCapture | FlagPromotion
)

// ErrIllegalMove is returned when move text does not match any legal move.
var ErrIllegalMove = errors.New("illegal move")

// Move encodes a move in 25 bits:
// bits 0-6:   from square (0x88)
// bits 7-13:  to square (0x88)
// bits 14-24: MoveFlag
type Move uint32

// NoMove represents an absent move.
const NoMove Move = 0

// NullMove passes the turn.
const NullMove = Move(FlagNull) << 14

// NewMove creates a move.
func NewMove(from, to Square, flags MoveFlag) Move {
	return Move(from) | Move(to)<<7 | Move(flags)<<14
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x7F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 7) & 0x7F)
}

// Flags returns the move flags.
func (m Move) Flags() MoveFlag {
	return MoveFlag(m >> 14)
}

// Has reports whether any of the given flags is set.
func (m Move) Has(f MoveFlag) bool {
	return m.Flags()&f != 0
}

// IsCapture returns true if the move captures (and therefore explodes).
func (m Move) IsCapture() bool {
	return m.Has(FlagCapture)
}

// IsPromotion returns true for a quiet promotion.
func (m Move) IsPromotion() bool {
	return m.Has(FlagPromotion)
}

// IsCastling returns true for either castle.
func (m Move) IsCastling() bool {
	return m.Has(FlagCastle)
}

// IsNull returns true for the null move.
func (m Move) IsNull() bool {
	return m.Has(FlagNull)
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet() bool {
	return !m.Has(FlagCapture | FlagPromotion)
}

// Promotion returns the promoted piece type, or Empty.
func (m Move) Promotion() PieceType {
	switch {
	case m.Has(FlagQueenPromotion):
		return Queen
	case m.Has(FlagRookPromotion):
		return Rook
	case m.Has(FlagBishopPromotion):
		return Bishop
	case m.Has(FlagKnightPromotion):
		return Knight
	}
	return Empty
}

// isCapturePromotion reports a pawn capture landing on the last rank.
// The pawn explodes, so only one such move is generated.
func (m Move) isCapturePromotion() bool {
	if !m.Has(FlagCapture) || !m.Has(FlagPawnMove) {
		return false
	}
	r := m.To().Rank()
	return r == 0 || r == 7
}

// String returns the UCI format of the move (e.g. "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove || m.IsNull() {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if pt := m.Promotion(); pt != Empty {
		s += string(pt.Char())
	} else if m.isCapturePromotion() {
		s += "q"
	}

	return s
}

// ParseMove resolves UCI move text against the legal moves of the position.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}
	if _, err := ParseSquare(s[0:2]); err != nil {
		return NoMove, err
	}
	if _, err := ParseSquare(s[2:4]); err != nil {
		return NoMove, err
	}

	legal := p.GenerateLegalMoves()
	for _, m := range legal.Slice() {
		text := m.String()
		if text == s {
			return m, nil
		}
		// Any promotion letter names the single exploding capture.
		if m.isCapturePromotion() && len(s) == 5 && text[:4] == s[:4] {
			return m, nil
		}
	}

	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
