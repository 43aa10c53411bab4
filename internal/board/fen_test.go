package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got := pos.ToFEN(); got != fen {
			t.Errorf("ToFEN() = %q, want %q", got, fen)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
		"rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"7k/P7/8/8/QQQQQQQQ/QQQQQQQQ/8/K7 w - - 0 1",
		"4k3/8/8/8/8/PPPPPPPP/P7/4K3 w - - 0 1",
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ParseFEN(%q) error = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestFullPieceListsSurvivePromotion(t *testing.T) {
	// Sixteen pieces: a promotion takes the queen list to fifteen.
	pos, err := ParseFEN("7k/P7/8/8/QQQQQQQQ/QQQQQQ2/8/K7 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if n := pos.Perft(1); n == 0 {
		t.Error("no moves from a legal position")
	}
}

func TestParseFENDropsImpossibleCastling(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if pos.CastlingRights != NoCastling {
		t.Errorf("castling = %s, want -", pos.CastlingRights)
	}
}

func TestParseMove(t *testing.T) {
	pos := NewPosition()

	m, err := pos.ParseMove("e2e4")
	if err != nil {
		t.Fatalf("ParseMove(e2e4): %v", err)
	}
	if !m.Has(FlagDoublePawn) || !m.Has(FlagPawnMove) {
		t.Errorf("e2e4 flags = %b, want double pawn push", m.Flags())
	}

	for _, s := range []string{"e2e5", "e7e5", "zz", "e2e4x", "a9a1"} {
		if _, err := pos.ParseMove(s); err == nil {
			t.Errorf("ParseMove(%q) succeeded, want error", s)
		}
	}
	if _, err := pos.ParseMove("e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("ParseMove(e2e5) error = %v, want ErrIllegalMove", err)
	}
	if got := pos.ToFEN(); got != StartFEN {
		t.Errorf("ParseMove changed the position: %s", got)
	}
}

func TestParseMoveCapturePromotionAcceptsAnyLetter(t *testing.T) {
	pos, err := ParseFEN("n3k3/1P6/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	for _, s := range []string{"b7a8q", "b7a8n", "b7a8r"} {
		m, err := pos.ParseMove(s)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		if !m.IsCapture() {
			t.Errorf("%s parsed as %s without capture flag", s, m)
		}
	}

	m, err := pos.ParseMove("b7b8n")
	if err != nil {
		t.Fatalf("ParseMove(b7b8n): %v", err)
	}
	if m.Promotion() != Knight {
		t.Errorf("b7b8n promotes to %s", m.Promotion())
	}
}

func TestSquareIndex64(t *testing.T) {
	for i := 0; i < 64; i++ {
		sq := FromIndex64(i)
		if !sq.OnBoard() {
			t.Fatalf("FromIndex64(%d) = %d is off the board", i, sq)
		}
		if got := sq.Index64(); got != i {
			t.Errorf("Index64(FromIndex64(%d)) = %d", i, got)
		}
	}
	if E4.String() != "e4" || H8.String() != "h8" || NoSquare.String() != "-" {
		t.Errorf("square names: %s %s %s", E4, H8, NoSquare)
	}
}
