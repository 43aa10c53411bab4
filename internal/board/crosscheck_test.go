package board

import (
	"sort"
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

// The standard chess generator agrees with atomic chess wherever no capture
// can explode anything that matters: the first three plies of the game and
// positions whose captures cannot reach a king.

func dragonPerft(b *dragontoothmg.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	for _, m := range b.GenerateLegalMoves() {
		undo := b.Apply(m)
		nodes += dragonPerft(b, depth-1)
		undo()
	}
	return nodes
}

func TestPerftAgreesWithStandardChessEarly(t *testing.T) {
	ref := dragontoothmg.ParseFen(StartFEN)
	pos := NewPosition()

	for depth := 1; depth <= 3; depth++ {
		want := dragonPerft(&ref, depth)
		if got := pos.Perft(depth); got != want {
			t.Errorf("perft(%d) = %d, standard generator = %d", depth, got, want)
		}
	}
}

func TestMoveSetsAgreeWithStandardChess(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"4k3/8/8/3p4/8/2N5/8/4K3 w - - 0 1",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
	}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			pos, err := ParseFEN(fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			ref := dragontoothmg.ParseFen(fen)

			var got, want []string
			for _, m := range pos.GenerateLegalMoves().Slice() {
				got = append(got, m.String())
			}
			for _, m := range ref.GenerateLegalMoves() {
				want = append(want, m.String())
			}
			sort.Strings(got)
			sort.Strings(want)

			if len(got) != len(want) {
				t.Fatalf("%d moves, standard generator has %d\n got %v\nwant %v", len(got), len(want), got, want)
			}
			for i := range got {
				if got[i] != want[i] {
					t.Fatalf("move sets differ\n got %v\nwant %v", got, want)
				}
			}
		})
	}
}
