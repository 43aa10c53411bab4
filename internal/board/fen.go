package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFEN is wrapped by every FEN parsing error.
var ErrInvalidFEN = errors.New("invalid FEN")

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidFEN, len(parts))
	}

	pos := newEmptyPosition()

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("%w: invalid side to move: %s", ErrInvalidFEN, parts[1])
	}

	// Parse castling rights (field 2)
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Rank() != 2 && sq.Rank() != 5) {
			return nil, fmt.Errorf("%w: invalid en passant square: %s", ErrInvalidFEN, parts[3])
		}
		pos.EnPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid half-move clock: %s", ErrInvalidFEN, parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid full-move number: %s", ErrInvalidFEN, parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	for c := White; c <= Black; c++ {
		if pos.pieceCounts[c][King] != 1 {
			return nil, fmt.Errorf("%w: %s must have exactly one king", ErrInvalidFEN, c)
		}
		// Keeps every piece list within maxPiecesPerType after promotions.
		if pos.pieceCounts[c][Pawn] > 8 {
			return nil, fmt.Errorf("%w: %s has more than 8 pawns", ErrInvalidFEN, c)
		}
		total := 0
		for pt := Pawn; pt <= King; pt++ {
			total += pos.pieceCounts[c][pt]
		}
		if total > 16 {
			return nil, fmt.Errorf("%w: %s has more than 16 pieces", ErrInvalidFEN, c)
		}
	}
	pos.dropImpossibleCastling()

	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("%w: too many squares in rank %d", ErrInvalidFEN, rank+1)
			}

			if c >= '1' && c <= '8' {
				// Skip empty squares
				file += int(c - '0')
			} else {
				piece, ok := PieceFromChar(byte(c))
				if !ok {
					return fmt.Errorf("%w: invalid piece character: %c", ErrInvalidFEN, c)
				}
				if pos.pieceCounts[piece.Color][piece.Type] == maxPiecesPerType {
					return fmt.Errorf("%w: too many %s pieces of type %s", ErrInvalidFEN, piece.Color, piece.Type)
				}
				pos.addPiece(NewSquare(file, rank), piece)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("%w: invalid number of squares in rank %d: got %d", ErrInvalidFEN, rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch c {
		case 'K':
			pos.CastlingRights |= WhiteKingSideCastle
		case 'Q':
			pos.CastlingRights |= WhiteQueenSideCastle
		case 'k':
			pos.CastlingRights |= BlackKingSideCastle
		case 'q':
			pos.CastlingRights |= BlackQueenSideCastle
		default:
			return fmt.Errorf("%w: invalid castling character: %c", ErrInvalidFEN, c)
		}
	}

	return nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.squares[sq]
			if piece.IsEmpty() {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// dropImpossibleCastling clears rights whose king or rook is not at home.
func (p *Position) dropImpossibleCastling() {
	for sq, lost := range castlingMask {
		if lost == 0 {
			continue
		}
		pc := p.squares[sq]
		want := Rook
		if Square(sq) == E1 || Square(sq) == E8 {
			want = King
		}
		c := White
		if Square(sq).Rank() == 7 {
			c = Black
		}
		if pc.Type != want || pc.Color != c {
			p.CastlingRights &^= lost
		}
	}
}

// ComputeHash computes the Zobrist hash for the position from scratch.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for _, sq := range p.PieceSquares(c, pt) {
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}

	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}

	hash ^= zobristCastling[p.CastlingRights]

	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	return hash
}

// ComputePawnKey computes the pawn hash key from scratch.
// Only includes pawn positions for pawn structure caching.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64

	for c := White; c <= Black; c++ {
		for _, sq := range p.PieceSquares(c, Pawn) {
			key ^= zobristPiece[c][Pawn][sq]
		}
	}

	return key
}
