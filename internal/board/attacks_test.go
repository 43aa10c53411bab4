package board

import (
	"math/rand"
	"testing"
)

func hasMove(ml *MoveList, text string) bool {
	for _, m := range ml.Slice() {
		if m.String() == text {
			return true
		}
	}
	return false
}

func TestAdjacentKingsAreNeverInCheck(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/8/3k4/3K3r/8 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !pos.KingsAdjacent() {
		t.Fatal("kings on d2 and d3 should be adjacent")
	}
	if !pos.IsAttacked(D2) {
		t.Fatal("rook on h2 should attack d2")
	}
	if pos.InCheck() {
		t.Error("InCheck() = true with adjacent kings")
	}

	legal := pos.GenerateLegalMoves()
	// e2 is on the rook's rank but still touches the black king.
	for _, want := range []string{"d2e2", "d2c2", "d2e1", "d2c1"} {
		if !hasMove(legal, want) {
			t.Errorf("%s should be legal", want)
		}
	}
}

func TestMoveThatExplodesOwnKingIsIllegal(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/3p4/3RK3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !pos.InCheck() {
		t.Fatal("pawn on d2 should give check to e1")
	}

	var pseudo MoveList
	pos.GenerateMoves(&pseudo)
	if !hasMove(&pseudo, "d1d2") {
		t.Fatal("d1d2 should be generated as a pseudo-legal capture")
	}
	if hasMove(pos.GenerateLegalMoves(), "d1d2") {
		t.Error("d1d2 blows up the white king and must be illegal")
	}
}

func TestKingsDoNotCapture(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/3n4/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	var pseudo MoveList
	pos.GenerateMoves(&pseudo)
	if hasMove(&pseudo, "e1d2") {
		t.Error("king capture e1d2 was generated")
	}
}

func TestWinningCaptureIsLegalDespiteCheck(t *testing.T) {
	// White is in check from the rook on h1 but can blow up the black king.
	pos, err := ParseFEN("4k3/3p4/8/8/8/8/8/3RK2r w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !pos.InCheck() {
		t.Fatal("rook on h1 should give check")
	}
	m, err := pos.ParseMove("d1d7")
	if err != nil {
		t.Fatalf("ParseMove(d1d7): %v", err)
	}
	pos.MakeMove(m)
	if !pos.IsKingCaptured(Black) {
		t.Error("black king should have exploded")
	}
	if pos.HasLegalMove() {
		t.Error("a side without a king has no moves")
	}
}

func TestCastling(t *testing.T) {
	pos, err := ParseFEN("r3kr2/8/8/8/8/8/8/R3K2R w KQq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	legal := pos.GenerateLegalMoves()
	if hasMove(legal, "e1g1") {
		t.Error("e1g1 crosses f1, attacked by the rook on f8")
	}
	if !hasMove(legal, "e1c1") {
		t.Error("e1c1 should be legal")
	}

	pos, err = ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	m, err := pos.ParseMove("e1g1")
	if err != nil {
		t.Fatalf("ParseMove(e1g1): %v", err)
	}
	if !m.IsCastling() {
		t.Fatalf("e1g1 parsed without castle flag")
	}
	pos.MakeMove(m)
	if got, want := pos.ToFEN(), "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1"; got != want {
		t.Errorf("after O-O: got %s, want %s", got, want)
	}
	pos.UnmakeMove()
	if got := pos.ToFEN(); got != "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1" {
		t.Errorf("after unmake: %s", got)
	}
}

func TestRepetition(t *testing.T) {
	pos := NewPosition()
	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	play := func() {
		for _, s := range cycle {
			m, err := pos.ParseMove(s)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", s, err)
			}
			pos.MakeMove(m)
		}
	}

	play()
	if pos.IsRepetition() {
		t.Fatal("second occurrence reported as repetition")
	}
	play()
	if !pos.IsRepetition() {
		t.Fatal("third occurrence not detected")
	}

	// A pawn move makes the earlier positions unreachable.
	m, _ := pos.ParseMove("e2e4")
	pos.MakeMove(m)
	if pos.IsRepetition() {
		t.Error("repetition reported across a pawn move")
	}
}

func TestExplosionGain(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/pppp1ppp/8/4p3/4P3/5Q2/PPPP1PPP/RNB1KBNR w KQkq - 0 2")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	m, err := pos.ParseMove("f3f7")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	// pawn + king + bishop + knight - queen; g7 is a pawn and survives
	want := 100 + KingValue + 300 + 300 - 900
	if got := pos.ExplosionGain(m); got != want {
		t.Errorf("ExplosionGain(f3f7) = %d, want %d", got, want)
	}
}

// mirrorListener rebuilds the board purely from listener events.
type mirrorListener struct {
	stack [][128]Piece
	cur   [128]Piece
	depth int
}

func (l *mirrorListener) Push() {
	l.stack = append(l.stack, l.cur)
	l.depth++
}

func (l *mirrorListener) Pop() {
	l.cur = l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	l.depth--
}

func (l *mirrorListener) PieceAdded(sq Square, p Piece)   { l.cur[sq] = p }
func (l *mirrorListener) PieceRemoved(sq Square, p Piece) { l.cur[sq] = NoPiece }
func (l *mirrorListener) PieceMoved(from, to Square, p Piece) {
	l.cur[from] = NoPiece
	l.cur[to] = p
}

func sameContent(a, b [128]Piece) bool {
	for i := 0; i < 64; i++ {
		sq := FromIndex64(i)
		if a[sq].Type != b[sq].Type || a[sq].Color != b[sq].Color {
			return false
		}
	}
	return true
}

func TestListenerTracksPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	l := &mirrorListener{cur: pos.squares}
	pos.SetListener(l)

	played := 0
	for ; played < 50; played++ {
		legal := pos.GenerateLegalMoves()
		if legal.Len() == 0 {
			break
		}
		pos.MakeMove(legal.Get(rng.Intn(legal.Len())))
		if !sameContent(l.cur, pos.squares) {
			t.Fatalf("listener diverged after %s", pos.LastMove())
		}
	}
	for ; played > 0; played-- {
		pos.UnmakeMove()
		if !sameContent(l.cur, pos.squares) {
			t.Fatalf("listener diverged after unmake")
		}
	}
	if l.depth != 0 {
		t.Errorf("push/pop imbalance: depth %d", l.depth)
	}
}
