package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// castlingMask lists the rights lost when a piece leaves, or is blown off, a square.
var castlingMask [128]CastlingRights

func init() {
	castlingMask[E1] = WhiteKingSideCastle | WhiteQueenSideCastle
	castlingMask[H1] = WhiteKingSideCastle
	castlingMask[A1] = WhiteQueenSideCastle
	castlingMask[E8] = BlackKingSideCastle | BlackQueenSideCastle
	castlingMask[H8] = BlackKingSideCastle
	castlingMask[A8] = BlackQueenSideCastle
}

// Listener observes structural changes of a position. It is notified while a
// move is made; UnmakeMove calls Pop instead of replaying the changes backwards.
type Listener interface {
	Push()
	Pop()
	PieceAdded(sq Square, p Piece)
	PieceRemoved(sq Square, p Piece)
	PieceMoved(from, to Square, p Piece)
}

// maxPiecesPerType bounds a piece list: two originals plus eight promotions.
const maxPiecesPerType = 16

type undoRecord struct {
	move          Move
	castling      CastlingRights
	enPassant     Square
	halfMoveClock int
	hash          uint64
	pawnKey       uint64
	removedStart  int // length of the removed stack before the move
}

type removedPiece struct {
	sq    Square
	piece Piece
}

// Position represents a complete atomic chess position on a 0x88 board.
type Position struct {
	squares     [128]Piece
	pieceLists  [2][NumPieceTypes][maxPiecesPerType]Square
	pieceCounts [2][NumPieceTypes]int

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for transposition table
	Hash uint64

	// Pawn hash key for pawn structure caching
	PawnKey uint64

	history []undoRecord
	removed []removedPiece

	listener Listener
	unmaking bool
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

func newEmptyPosition() *Position {
	return &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		history:        make([]undoRecord, 0, 256),
		removed:        make([]removedPiece, 0, 256),
	}
}

// Copy creates a deep copy of the position. The listener is not copied.
func (p *Position) Copy() *Position {
	newPos := *p
	newPos.history = append(make([]undoRecord, 0, cap(p.history)), p.history...)
	newPos.removed = append(make([]removedPiece, 0, cap(p.removed)), p.removed...)
	newPos.listener = nil
	return &newPos
}

// SetListener installs l (or removes the listener when l is nil).
func (p *Position) SetListener(l Listener) {
	p.listener = l
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	if !sq.OnBoard() {
		return NoPiece
	}
	return p.squares[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.squares[sq].Type == Empty
}

// PieceSquares returns the squares holding pieces of the given color and type.
// The slice aliases internal state and is only valid until the next move.
func (p *Position) PieceSquares(c Color, pt PieceType) []Square {
	return p.pieceLists[c][pt][:p.pieceCounts[c][pt]]
}

// PieceCount returns the number of pieces of the given color and type.
func (p *Position) PieceCount(c Color, pt PieceType) int {
	return p.pieceCounts[c][pt]
}

// KingSquare returns the king square of the given color, or NoSquare once it exploded.
func (p *Position) KingSquare(c Color) Square {
	if p.pieceCounts[c][King] == 0 {
		return NoSquare
	}
	return p.pieceLists[c][King][0]
}

// HasKing reports whether the king of the given color is still on the board.
func (p *Position) HasKing(c Color) bool {
	return p.pieceCounts[c][King] != 0
}

// HasNonPawnMaterial returns true if the side has a knight, bishop, rook or queen.
// Used for null move pruning (avoid in pure pawn endgames due to zugzwang).
func (p *Position) HasNonPawnMaterial(c Color) bool {
	n := p.pieceCounts[c]
	return n[Knight]+n[Bishop]+n[Rook]+n[Queen] != 0
}

// Ply returns the number of moves made on this position object.
func (p *Position) Ply() int {
	return len(p.history)
}

// LastMove returns the most recent move, or NoMove.
func (p *Position) LastMove() Move {
	if len(p.history) == 0 {
		return NoMove
	}
	return p.history[len(p.history)-1].move
}

func (p *Position) toggle(c Color, pt PieceType, sq Square) {
	key := zobristPiece[c][pt][sq]
	p.Hash ^= key
	if pt == Pawn {
		p.PawnKey ^= key
	}
}

// addPiece appends a piece to its list and places it on sq.
func (p *Position) addPiece(sq Square, piece Piece) {
	c, pt := piece.Color, piece.Type
	n := p.pieceCounts[c][pt]
	piece.listIndex = uint8(n)
	p.pieceLists[c][pt][n] = sq
	p.pieceCounts[c][pt] = n + 1
	p.squares[sq] = piece
	p.toggle(c, pt, sq)

	if p.listener != nil && !p.unmaking {
		p.listener.PieceAdded(sq, piece)
	}
}

// removePiece clears sq. The list slot is refilled with the list's last entry.
func (p *Position) removePiece(sq Square) Piece {
	piece := p.squares[sq]
	c, pt := piece.Color, piece.Type
	list := &p.pieceLists[c][pt]
	last := p.pieceCounts[c][pt] - 1
	i := int(piece.listIndex)
	if i != last {
		moved := list[last]
		list[i] = moved
		p.squares[moved].listIndex = uint8(i)
	}
	p.pieceCounts[c][pt] = last
	p.squares[sq] = NoPiece
	p.toggle(c, pt, sq)

	if p.listener != nil && !p.unmaking {
		p.listener.PieceRemoved(sq, piece)
	}
	return piece
}

// restorePiece undoes removePiece: the piece returns to its old slot and the
// entry that filled the slot moves back to the end of the list.
func (p *Position) restorePiece(sq Square, piece Piece) {
	c, pt := piece.Color, piece.Type
	list := &p.pieceLists[c][pt]
	n := p.pieceCounts[c][pt]
	i := int(piece.listIndex)
	if i < n {
		moved := list[i]
		list[n] = moved
		p.squares[moved].listIndex = uint8(n)
	}
	list[i] = sq
	p.pieceCounts[c][pt] = n + 1
	p.squares[sq] = piece
	p.toggle(c, pt, sq)
}

// movePiece relocates the piece on from to the empty square to.
func (p *Position) movePiece(from, to Square) {
	piece := p.squares[from]
	c, pt := piece.Color, piece.Type
	p.pieceLists[c][pt][piece.listIndex] = to
	p.squares[to] = piece
	p.squares[from] = NoPiece
	p.toggle(c, pt, from)
	p.toggle(c, pt, to)

	if p.listener != nil && !p.unmaking {
		p.listener.PieceMoved(from, to, piece)
	}
}

// capture removes the piece on sq and records it for unmake.
func (p *Position) capture(sq Square) {
	p.removed = append(p.removed, removedPiece{sq: sq, piece: p.squares[sq]})
	p.removePiece(sq)
	p.loseCastling(castlingMask[sq])
}

func (p *Position) loseCastling(lost CastlingRights) {
	if p.CastlingRights&lost == 0 {
		return
	}
	p.Hash ^= zobristCastling[p.CastlingRights]
	p.CastlingRights &^= lost
	p.Hash ^= zobristCastling[p.CastlingRights]
}

func (p *Position) clearEnPassant() {
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
}

// pawnPush returns the forward direction of pawns of the given color.
func pawnPush(c Color) Square {
	if c == White {
		return Up
	}
	return Down
}

// castleRookSquares returns the rook's origin and destination for a castle.
func castleRookSquares(m Move) (from, to Square) {
	king := m.From()
	if m.Has(FlagCastleKingSide) {
		return king + 3, king + 1
	}
	return king - 4, king - 1
}

// MakeMove applies a pseudo-legal move. Call IsLegal afterwards and
// UnmakeMove if it returns false.
func (p *Position) MakeMove(m Move) {
	us := p.SideToMove
	p.history = append(p.history, undoRecord{
		move:          m,
		castling:      p.CastlingRights,
		enPassant:     p.EnPassant,
		halfMoveClock: p.HalfMoveClock,
		hash:          p.Hash,
		pawnKey:       p.PawnKey,
		removedStart:  len(p.removed),
	})
	if p.listener != nil {
		p.listener.Push()
	}

	if m.IsNull() {
		p.clearEnPassant()
		p.SideToMove = us.Other()
		p.Hash ^= zobristSideToMove
		return
	}

	from, to := m.From(), m.To()
	p.loseCastling(castlingMask[from])

	if m.Has(FlagPawnMove | FlagCapture) {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	p.clearEnPassant()
	if m.Has(FlagDoublePawn) {
		p.EnPassant = (from + to) / 2
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	switch {
	case m.IsCapture():
		p.explode(m, us)
	case m.IsPromotion():
		p.capture(from)
		p.addPiece(to, NewPiece(m.Promotion(), us))
	case m.IsCastling():
		rookFrom, rookTo := castleRookSquares(m)
		p.movePiece(from, to)
		p.movePiece(rookFrom, rookTo)
	default:
		p.movePiece(from, to)
	}

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = us.Other()
	p.Hash ^= zobristSideToMove
}

// explode resolves a capture: the mover, the captured piece and every
// non-pawn piece around the destination leave the board.
func (p *Position) explode(m Move, us Color) {
	from, to := m.From(), m.To()
	p.capture(from)

	target := to
	if m.Has(FlagEnPassant) {
		target = to - pawnPush(us)
	}
	if !p.IsEmpty(target) {
		p.capture(target)
	}

	for _, d := range kingOffsets {
		sq := to + d
		if !sq.OnBoard() {
			continue
		}
		if pt := p.squares[sq].Type; pt != Empty && pt != Pawn {
			p.capture(sq)
		}
	}
}

// UnmakeMove takes back the last move made with MakeMove.
func (p *Position) UnmakeMove() {
	n := len(p.history) - 1
	if n < 0 {
		return
	}
	rec := p.history[n]
	p.history = p.history[:n]
	m := rec.move

	p.unmaking = true
	p.SideToMove = p.SideToMove.Other()

	if !m.IsNull() {
		from, to := m.From(), m.To()
		switch {
		case m.IsCapture():
		case m.IsPromotion():
			p.removePiece(to)
		case m.IsCastling():
			rookFrom, rookTo := castleRookSquares(m)
			p.movePiece(rookTo, rookFrom)
			p.movePiece(to, from)
		default:
			p.movePiece(to, from)
		}

		for i := len(p.removed) - 1; i >= rec.removedStart; i-- {
			r := p.removed[i]
			p.restorePiece(r.sq, r.piece)
		}
		p.removed = p.removed[:rec.removedStart]

		if p.SideToMove == Black {
			p.FullMoveNumber--
		}
	}

	p.CastlingRights = rec.castling
	p.EnPassant = rec.enPassant
	p.HalfMoveClock = rec.halfMoveClock
	p.Hash = rec.hash
	p.PawnKey = rec.pawnKey
	p.unmaking = false

	if p.listener != nil {
		p.listener.Pop()
	}
}

// MakeNullMove passes the turn. Used for null move pruning in search.
func (p *Position) MakeNullMove() {
	p.MakeMove(NullMove)
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove() {
	p.UnmakeMove()
}

// IsRepetition reports a threefold repetition of the current position. The walk
// stops at the first irreversible move, since nothing before it can recur.
func (p *Position) IsRepetition() bool {
	count := 1
	for i := len(p.history) - 1; i >= 0; i-- {
		rec := &p.history[i]
		if rec.move.Has(FlagNonRepeatable | FlagNull) {
			return false
		}
		if rec.hash == p.Hash {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}

// IsFiftyMoveDraw reports whether the 50-move rule applies.
func (p *Position) IsFiftyMoveDraw() bool {
	return p.HalfMoveClock >= 100
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(p.squares[NewSquare(file, rank)].String())
			sb.WriteByte(' ')
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}
