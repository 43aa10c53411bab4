package board

// Polyglot-layout keys: 12 piece kinds × 64 squares, then castling, en passant
// and side to move. Opening books used by this engine are written with the
// same table (see internal/book).
var (
	polyglotPieces     [12][64]uint64 // [piece_kind][square]
	polyglotCastling   [4]uint64      // [KQkq]
	polyglotEnPassant  [8]uint64      // [file]
	polyglotSideToMove uint64
)

func init() {
	initPolyglotKeys()
}

// Polyglot piece ordering: bp, bN, bB, bR, bQ, bK, wp, wN, wB, wR, wQ, wK
var polyglotKind = [2][NumPieceTypes]int{
	{-1, 1, 3, 5, 7, 9, 11},
	{-1, 0, 2, 4, 6, 8, 10},
}

// PolyglotKey computes the book key of the position.
func (p *Position) PolyglotKey() uint64 {
	var hash uint64

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			kind := polyglotKind[c][pt]
			for _, sq := range p.PieceSquares(c, pt) {
				hash ^= polyglotPieces[kind][sq.Index64()]
			}
		}
	}

	if p.CastlingRights&WhiteKingSideCastle != 0 {
		hash ^= polyglotCastling[0]
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		hash ^= polyglotCastling[1]
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		hash ^= polyglotCastling[2]
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		hash ^= polyglotCastling[3]
	}

	// En passant only counts if a pawn can actually take
	if p.EnPassant != NoSquare {
		us := p.SideToMove
		behind := p.EnPassant - pawnPush(us)
		for _, side := range [2]Square{Left, Right} {
			sq := behind + side
			if !sq.OnBoard() {
				continue
			}
			if pc := p.squares[sq]; pc.Type == Pawn && pc.Color == us {
				hash ^= polyglotEnPassant[p.EnPassant.File()]
				break
			}
		}
	}

	if p.SideToMove == White {
		hash ^= polyglotSideToMove
	}

	return hash
}

func initPolyglotKeys() {
	rng := newPRNG(0x37b4a4b3f0d1c0d0)

	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			polyglotPieces[piece][sq] = rng.next()
		}
	}

	for i := 0; i < 4; i++ {
		polyglotCastling[i] = rng.next()
	}

	for i := 0; i < 8; i++ {
		polyglotEnPassant[i] = rng.next()
	}

	polyglotSideToMove = rng.next()
}
