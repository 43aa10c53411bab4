package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hailam/boomchess/internal/board"
)

const (
	queenWinsFEN = "rnbqkbnr/pppp1ppp/8/4p3/4P3/5Q2/PPPP1PPP/RNB1KBNR w KQkq - 0 2"
	rookWinsFEN  = "4k3/3p4/8/8/8/8/8/3RK2r w - - 0 1"
	onlyMoveFEN  = "k7/8/8/8/8/6b1/8/r6K w - - 0 1"
)

func mustFEN(t testing.TB, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestSearchFindsWinningCapture(t *testing.T) {
	tests := []struct {
		fen  string
		want string
	}{
		{queenWinsFEN, "f3f7"},
		{rookWinsFEN, "d1d7"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			eng := NewEngine(16)
			res, err := eng.Search(mustFEN(t, tc.fen), SearchLimits{Depth: 3})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := res.BestMove.String(); got != tc.want {
				t.Errorf("best move = %s, want %s", got, tc.want)
			}
			if res.Score < EvalMax-MaxPly {
				t.Errorf("score = %d, want a winning score", res.Score)
			}
			if n, ok := MateIn(res.Score); !ok || n != 1 {
				t.Errorf("MateIn(%d) = %d, %v; want 1", res.Score, n, ok)
			}
		})
	}
}

func TestSingleLegalMoveReturnsImmediately(t *testing.T) {
	pos := mustFEN(t, onlyMoveFEN)
	if n := pos.GenerateLegalMoves().Len(); n != 1 {
		t.Fatalf("test position has %d legal moves, want 1", n)
	}

	eng := NewEngine(16)
	res, err := eng.Search(pos, SearchLimits{Depth: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove.String() != "h1g2" {
		t.Errorf("best move = %s, want h1g2", res.BestMove)
	}
	if res.Depth != 0 || res.Nodes != 0 {
		t.Errorf("searched depth %d with %d nodes, want no search", res.Depth, res.Nodes)
	}
}

func TestThreefoldRepetitionScoresDraw(t *testing.T) {
	pos := board.NewPosition()
	for i := 0; i < 2; i++ {
		for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
			m, err := pos.ParseMove(s)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", s, err)
			}
			pos.MakeMove(m)
		}
	}

	s := NewSearcher(NewTranspositionTable(1), NewHandCrafted(EvalFull))
	s.worker.init(pos, 0, time.Time{})
	if got := s.worker.alphaBeta(4, 1, -Infinity, Infinity); got != 0 {
		t.Errorf("alphaBeta on threefold repetition = %d, want 0", got)
	}
}

func TestSearchLeavesPositionUntouched(t *testing.T) {
	pos := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	fen, hash, ply := pos.ToFEN(), pos.Hash, pos.Ply()

	eng := NewEngine(16)
	if _, err := eng.Search(pos, SearchLimits{Depth: 3}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if pos.ToFEN() != fen || pos.Hash != hash || pos.Ply() != ply {
		t.Errorf("position changed by search: %s", pos.ToFEN())
	}
}

func TestSearchWithoutTranspositionTable(t *testing.T) {
	for _, fen := range []string{queenWinsFEN, rookWinsFEN} {
		with := NewEngine(16)
		without := NewEngine(0)

		a, err := with.Search(mustFEN(t, fen), SearchLimits{Depth: 4})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		b, err := without.Search(mustFEN(t, fen), SearchLimits{Depth: 4})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if a.BestMove != b.BestMove {
			t.Errorf("%s: best move %s with table, %s without", fen, a.BestMove, b.BestMove)
		}
	}
}

func TestSearchScoresStayInBounds(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"8/8/8/8/8/3k4/3K3r/8 w - - 0 1",
	}
	for _, fen := range fens {
		eng := NewEngine(16)
		var infos []SearchInfo
		eng.OnInfo = func(info SearchInfo) { infos = append(infos, info) }

		res, err := eng.Search(mustFEN(t, fen), SearchLimits{Depth: 4})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if res.Score < EvalMin || res.Score > EvalMax {
			t.Errorf("%s: score %d out of bounds", fen, res.Score)
		}
		for _, info := range infos {
			if info.Score < EvalMin || info.Score > EvalMax {
				t.Errorf("%s: depth %d score %d out of bounds", fen, info.Depth, info.Score)
			}
			if len(info.PV) == 0 {
				t.Errorf("%s: depth %d reported an empty PV", fen, info.Depth)
			}
		}
		if eng.State() != StateCompleted {
			t.Errorf("state = %s, want completed", eng.State())
		}
	}
}

func TestSearchRejectsConcurrentStart(t *testing.T) {
	eng := NewEngine(1)
	eng.searcher.state.Store(int32(StateSearching))

	_, err := eng.Search(board.NewPosition(), SearchLimits{Depth: 1})
	if !errors.Is(err, ErrSearchInProgress) {
		t.Errorf("Search error = %v, want ErrSearchInProgress", err)
	}
}

func TestStopAfterPrepareCancelsSearch(t *testing.T) {
	eng := NewEngine(16)
	if err := eng.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := eng.Prepare(); !errors.Is(err, ErrSearchInProgress) {
		t.Errorf("second Prepare error = %v, want ErrSearchInProgress", err)
	}
	eng.Stop()

	res, err := eng.Search(board.NewPosition(), SearchLimits{Infinite: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Cancelled || eng.State() != StateCancelled {
		t.Errorf("cancelled = %v, state = %s", res.Cancelled, eng.State())
	}

	// The stop does not carry over to the next search.
	res, err = eng.Search(board.NewPosition(), SearchLimits{Depth: 2})
	if err != nil || res.Cancelled || res.Depth != 2 {
		t.Errorf("next search = %+v, %v", res, err)
	}
}

func TestStopCancelsSearch(t *testing.T) {
	eng := NewEngine(16)
	pos := board.NewPosition()

	done := make(chan SearchResult)
	go func() {
		res, err := eng.Search(pos, SearchLimits{Infinite: true})
		if err != nil {
			t.Errorf("Search: %v", err)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case res := <-done:
		if !res.Cancelled {
			t.Error("result not marked cancelled")
		}
		if !pos.GenerateLegalMoves().Contains(res.BestMove) {
			t.Errorf("best move %s is not legal", res.BestMove)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
	if eng.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", eng.State())
	}
}

func TestMoveTimeLimit(t *testing.T) {
	eng := NewEngine(16)
	start := time.Now()
	res, err := eng.Search(board.NewPosition(), SearchLimits{MoveTime: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search took %v with a 200ms budget", elapsed)
	}
	if res.BestMove == board.NoMove {
		t.Error("no move returned")
	}
}

func TestNodeLimit(t *testing.T) {
	eng := NewEngine(16)
	res, err := eng.Search(board.NewPosition(), SearchLimits{Nodes: 5000})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Nodes > 5000 {
		t.Errorf("searched %d nodes, limit 5000", res.Nodes)
	}
	if res.BestMove == board.NoMove {
		t.Error("no move returned")
	}
}

func TestPerftParallelMatchesPerft(t *testing.T) {
	eng := NewEngine(1)
	pos := board.NewPosition()

	got, err := eng.PerftParallel(context.Background(), pos, 3, 4)
	if err != nil {
		t.Fatalf("PerftParallel: %v", err)
	}
	if got != 8902 {
		t.Errorf("PerftParallel(3) = %d, want 8902", got)
	}
	if pos.ToFEN() != board.StartFEN {
		t.Errorf("position changed: %s", pos.ToFEN())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.PerftParallel(ctx, pos, 3, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled PerftParallel error = %v", err)
	}
}

func TestMateIn(t *testing.T) {
	tests := []struct {
		score int
		want  int
		ok    bool
	}{
		{EvalMax - 1, 1, true},
		{EvalMax - 3, 2, true},
		{EvalMin + 2, -1, true},
		{EvalMin + 4, -2, true},
		{150, 0, false},
	}
	for _, tc := range tests {
		got, ok := MateIn(tc.score)
		if got != tc.want || ok != tc.ok {
			t.Errorf("MateIn(%d) = %d, %v; want %d, %v", tc.score, got, ok, tc.want, tc.ok)
		}
	}
	if got := ScoreToString(-250); got != "-2.50" {
		t.Errorf("ScoreToString(-250) = %q", got)
	}
}

func TestTimeManager(t *testing.T) {
	tm := NewTimeManager()

	limits := tm.SearchLimits(UCILimits{Depth: 5}, board.White, 0)
	if limits.MoveTime != 0 || limits.Depth != 5 {
		t.Errorf("depth-only limits = %+v", limits)
	}

	limits = tm.SearchLimits(UCILimits{MoveTime: time.Second}, board.Black, 10)
	if limits.MoveTime != time.Second {
		t.Errorf("movetime limits = %+v", limits)
	}

	clock := UCILimits{
		Time: [2]time.Duration{60 * time.Second, 10 * time.Second},
		Inc:  [2]time.Duration{time.Second, time.Second},
	}
	white := tm.SearchLimits(clock, board.White, 20)
	if white.OptimumTime <= 0 || white.OptimumTime > white.MoveTime || white.MoveTime >= clock.Time[board.White] {
		t.Errorf("white budget = %+v", white)
	}
	black := tm.SearchLimits(clock, board.Black, 20)
	if black.MoveTime >= white.MoveTime {
		t.Errorf("black with less time got %v, white %v", black.MoveTime, white.MoveTime)
	}
}

func BenchmarkSearch(b *testing.B) {
	pos := mustFEN(b, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	for i := 0; i < b.N; i++ {
		eng := NewEngine(16)
		if _, err := eng.Search(pos, SearchLimits{Depth: 4}); err != nil {
			b.Fatal(err)
		}
	}
}
