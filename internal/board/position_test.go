package board

import (
	"math/rand"
	"reflect"
	"testing"
)

var testFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	"8/8/8/8/8/3k4/3K3r/8 w - - 0 1",
}

// snapshot captures every observable field of a position.
type snapshot struct {
	squares   [128]Piece
	lists     [2][NumPieceTypes][]Square
	counts    [2][NumPieceTypes]int
	side      Color
	castling  CastlingRights
	enPassant Square
	halfMove  int
	fullMove  int
	hash      uint64
	pawnKey   uint64
	plies     int
	removed   int
}

func takeSnapshot(p *Position) snapshot {
	s := snapshot{
		squares:   p.squares,
		counts:    p.pieceCounts,
		side:      p.SideToMove,
		castling:  p.CastlingRights,
		enPassant: p.EnPassant,
		halfMove:  p.HalfMoveClock,
		fullMove:  p.FullMoveNumber,
		hash:      p.Hash,
		pawnKey:   p.PawnKey,
		plies:     len(p.history),
		removed:   len(p.removed),
	}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			s.lists[c][pt] = append([]Square(nil), p.PieceSquares(c, pt)...)
		}
	}
	return s
}

// checkPieceLists verifies that every list entry points at a matching piece.
func checkPieceLists(t *testing.T, p *Position) {
	t.Helper()
	total := 0
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for i, sq := range p.PieceSquares(c, pt) {
				pc := p.squares[sq]
				if pc.Type != pt || pc.Color != c || int(pc.listIndex) != i {
					t.Fatalf("list %s/%s slot %d -> %s holds %+v", c, pt, i, sq, pc)
				}
				total++
			}
		}
	}
	occupied := 0
	for i := 0; i < 64; i++ {
		if !p.squares[FromIndex64(i)].IsEmpty() {
			occupied++
		}
	}
	if occupied != total {
		t.Fatalf("%d occupied squares but %d list entries", occupied, total)
	}
}

func TestMakeUnmakeRestoresPosition(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		before := takeSnapshot(pos)

		var ml MoveList
		pos.GenerateMoves(&ml)
		for _, m := range ml.Slice() {
			pos.MakeMove(m)
			checkPieceLists(t, pos)
			pos.UnmakeMove()

			if after := takeSnapshot(pos); !reflect.DeepEqual(before, after) {
				t.Fatalf("%s: make/unmake %s did not restore the position", fen, m)
			}
		}
	}
}

func TestHashConsistencyRandomPlayouts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		start := takeSnapshot(pos)

		for game := 0; game < 20; game++ {
			played := 0
			for ply := 0; ply < 60; ply++ {
				legal := pos.GenerateLegalMoves()
				if legal.Len() == 0 {
					break
				}
				pos.MakeMove(legal.Get(rng.Intn(legal.Len())))
				played++

				if got := pos.ComputeHash(); got != pos.Hash {
					t.Fatalf("%s: incremental hash %016x, recomputed %016x", pos.ToFEN(), pos.Hash, got)
				}
				if got := pos.ComputePawnKey(); got != pos.PawnKey {
					t.Fatalf("%s: incremental pawn key %016x, recomputed %016x", pos.ToFEN(), pos.PawnKey, got)
				}
				checkPieceLists(t, pos)
			}
			for ; played > 0; played-- {
				pos.UnmakeMove()
				if got := pos.ComputeHash(); got != pos.Hash {
					t.Fatalf("after unmake: incremental hash %016x, recomputed %016x", pos.Hash, got)
				}
			}
			if after := takeSnapshot(pos); !reflect.DeepEqual(start, after) {
				t.Fatalf("%s: random playout not fully undone", fen)
			}
		}
	}
}

// bruteForceLegal judges the move just made by scanning the whole board.
func bruteForceLegal(p *Position) bool {
	mover := p.SideToMove.Other()
	kings := [2]Square{NoSquare, NoSquare}
	for i := 0; i < 64; i++ {
		sq := FromIndex64(i)
		if pc := p.squares[sq]; pc.Type == King {
			kings[pc.Color] = sq
		}
	}
	if kings[mover] == NoSquare {
		return false
	}
	if kings[p.SideToMove] == NoSquare {
		return true
	}
	if Distance(kings[White], kings[Black]) <= 1 {
		return true
	}

	target := kings[mover]
	for i := 0; i < 64; i++ {
		from := FromIndex64(i)
		pc := p.squares[from]
		if pc.IsEmpty() || pc.Color == mover {
			continue
		}
		if reaches(p, from, pc, target) {
			return false
		}
	}
	return true
}

func reaches(p *Position, from Square, pc Piece, target Square) bool {
	df := target.File() - from.File()
	dr := target.Rank() - from.Rank()
	abs := func(x int) int {
		if x < 0 {
			return -x
		}
		return x
	}

	switch pc.Type {
	case Pawn:
		forward := 1
		if pc.Color == Black {
			forward = -1
		}
		return dr == forward && abs(df) == 1
	case Knight:
		return abs(df)*abs(dr) == 2
	case King:
		return false
	}

	straight := df == 0 || dr == 0
	diagonal := abs(df) == abs(dr)
	switch {
	case pc.Type == Rook && !straight,
		pc.Type == Bishop && !diagonal,
		pc.Type == Queen && !straight && !diagonal:
		return false
	}

	sign := func(x int) int {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	}
	f, r := from.File()+sign(df), from.Rank()+sign(dr)
	for f != target.File() || r != target.Rank() {
		if !p.squares[NewSquare(f, r)].IsEmpty() {
			return false
		}
		f += sign(df)
		r += sign(dr)
	}
	return true
}

func TestLegalityMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		for ply := 0; ply < 40; ply++ {
			var ml MoveList
			pos.GenerateMoves(&ml)
			for _, m := range ml.Slice() {
				pos.MakeMove(m)
				if got, want := pos.IsLegal(), bruteForceLegal(pos); got != want {
					t.Fatalf("%s after %s: IsLegal = %v, brute force = %v", fen, m, got, want)
				}
				pos.UnmakeMove()
			}
			legal := pos.GenerateLegalMoves()
			if legal.Len() == 0 {
				break
			}
			pos.MakeMove(legal.Get(rng.Intn(legal.Len())))
		}
	}
}

func TestExplosions(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		move  string
		after string
	}{
		{
			name:  "pawn trade",
			fen:   "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
			move:  "e4d5",
			after: "rnbqkbnr/ppp1pppp/8/8/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 2",
		},
		{
			name:  "en passant explodes around the destination",
			fen:   "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
			move:  "e5f6",
			after: "rnbqkbnr/ppp1p1pp/8/3p4/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3",
		},
		{
			name:  "queen blows up the king",
			fen:   "rnbqkbnr/pppp1ppp/8/4p3/4P3/5Q2/PPPP1PPP/RNB1KBNR w KQkq - 0 2",
			move:  "f3f7",
			after: "rnbq3r/pppp2pp/8/4p3/4P3/8/PPPP1PPP/RNB1KBNR b KQ - 0 2",
		},
		{
			name:  "rook on its home square loses castling",
			fen:   "r3k3/1p6/8/8/8/8/8/R3K2R w KQq - 0 1",
			move:  "a1a8",
			after: "4k3/1p6/8/8/8/8/8/4K2R b K - 0 1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			before := pos.ToFEN()

			m, err := pos.ParseMove(tc.move)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", tc.move, err)
			}
			pos.MakeMove(m)
			if got := pos.ToFEN(); got != tc.after {
				t.Errorf("after %s:\n got %s\nwant %s", tc.move, got, tc.after)
			}
			pos.UnmakeMove()
			if got := pos.ToFEN(); got != before {
				t.Errorf("after unmake:\n got %s\nwant %s", got, before)
			}
		})
	}
}
