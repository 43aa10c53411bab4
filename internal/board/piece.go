package board

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// PieceType represents the kind of a piece. Empty marks a vacant square.
type PieceType uint8

const (
	Empty PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// NumPieceTypes is the size of arrays indexed by PieceType.
const NumPieceTypes = 7

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "Empty"
	}
}

// Char returns the lowercase FEN letter of the piece type.
func (pt PieceType) Char() byte {
	return " pnbrqk"[pt]
}

// KingValue is the weight of a king. A capture that reaches the king wins the game,
// so it outweighs any combination of other material.
const KingValue = 100000

// PieceValue is the material weight of each piece type in centipawns.
var PieceValue = [NumPieceTypes]int{0, 100, 300, 300, 500, 900, KingValue}

// Piece is the content of a square. Besides type and color it remembers its
// slot in the position's piece list, so it can be removed in O(1).
type Piece struct {
	Type      PieceType
	Color     Color
	listIndex uint8
}

// NoPiece is the content of an empty square.
var NoPiece = Piece{}

// NewPiece creates a piece that is not yet placed on a board.
func NewPiece(pt PieceType, c Color) Piece {
	return Piece{Type: pt, Color: c}
}

// IsEmpty reports whether the piece marks a vacant square.
func (p Piece) IsEmpty() bool {
	return p.Type == Empty
}

// Value returns the material weight of the piece.
func (p Piece) Value() int {
	return PieceValue[p.Type]
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black.
func (p Piece) String() string {
	if p.Type == Empty {
		return "."
	}
	c := p.Type.Char()
	if p.Color == White {
		c -= 'a' - 'A'
	}
	return string(c)
}

// PieceFromChar converts a FEN character to a Piece. ok is false for unknown letters.
func PieceFromChar(c byte) (p Piece, ok bool) {
	color := White
	if c >= 'a' && c <= 'z' {
		color = Black
		c -= 'a' - 'A'
	}
	switch c {
	case 'P':
		return NewPiece(Pawn, color), true
	case 'N':
		return NewPiece(Knight, color), true
	case 'B':
		return NewPiece(Bishop, color), true
	case 'R':
		return NewPiece(Rook, color), true
	case 'Q':
		return NewPiece(Queen, color), true
	case 'K':
		return NewPiece(King, color), true
	}
	return NoPiece, false
}
