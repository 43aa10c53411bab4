// Package uci implements the UCI protocol front end of the engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/boomchess/internal/board"
	"github.com/hailam/boomchess/internal/book"
	"github.com/hailam/boomchess/internal/engine"
	"github.com/hailam/boomchess/internal/nnue"
	"github.com/hailam/boomchess/internal/storage"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	in  io.Reader
	out *writer

	options Options
	book    *book.Book
	network *nnue.Evaluator
	store   *storage.Storage

	// Search state
	searchDone chan struct{}
}

// writer serializes protocol output from the main loop and the search goroutine.
type writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (w *writer) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
	w.w.WriteByte('\n')
	w.w.Flush()
}

// New creates a new UCI protocol handler reading commands from in and
// writing responses to out.
func New(eng *engine.Engine, in io.Reader, out io.Writer) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		in:       in,
		out:      &writer{w: bufio.NewWriter(out)},
		options:  DefaultOptions(eng.HashSize()),
	}
}

// Run reads commands until "quit" or the end of input. A search still
// running when input ends is allowed to finish.
func (u *UCI) Run() error {
	scanner := bufio.NewScanner(u.in)

	for scanner.Scan() {
		if !u.Execute(scanner.Text()) {
			return nil
		}
	}
	u.waitSearch()
	return scanner.Err()
}

// Execute handles one command line. It returns false after "quit".
func (u *UCI) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.out.printf("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handleStop()
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleStop()
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.out.printf("%s", u.position.String())
	case "eval":
		u.handleStop()
		u.handleEval()
	case "perft":
		u.handlePerft(args)
	case "divide":
		u.handleDivide(args)
	default:
		u.info("Unknown command: %s", line)
	}
	return true
}

// info sends a diagnostic line to the GUI.
func (u *UCI) info(format string, args ...any) {
	u.out.printf("info string "+format, args...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.out.printf("id name BoomChess")
	u.out.printf("id author BoomChess developers")
	u.out.printf("")
	for _, line := range u.options.Describe() {
		u.out.printf("%s", line)
	}
	u.out.printf("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// An unparsable FEN leaves the current position in place; moves that are
// not legal are reported and skipped.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		u.info("Unrecognized position")
		return
	}

	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		p, err := board.ParseFEN(strings.Join(args[1:moveStart], " "))
		if err != nil {
			u.info("Invalid FEN: %v", err)
			return
		}
		pos = p
	default:
		u.info("Unrecognized position")
		return
	}

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart+1:] {
			move, err := pos.ParseMove(moveStr)
			if err != nil {
				u.info("Requested an illegal move: %s", moveStr)
				continue
			}
			pos.MakeMove(move)
		}
	}
	u.position = pos
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) engine.UCILimits {
	var limits engine.UCILimits

	next := func(i *int) int {
		if *i+1 >= len(args) {
			return 0
		}
		*i++
		n, _ := strconv.Atoi(args[*i])
		return n
	}
	ms := func(i *int) time.Duration {
		return time.Duration(next(i)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			limits.Depth = next(&i)
		case "nodes":
			if n := next(&i); n > 0 {
				limits.Nodes = uint64(n)
			}
		case "movetime":
			limits.MoveTime = ms(&i)
		case "infinite":
			limits.Infinite = true
		case "wtime":
			limits.Time[board.White] = ms(&i)
		case "btime":
			limits.Time[board.Black] = ms(&i)
		case "winc":
			limits.Inc[board.White] = ms(&i)
		case "binc":
			limits.Inc[board.Black] = ms(&i)
		case "movestogo":
			limits.MovesToGo = next(&i)
		}
	}

	return limits
}

// handleGo answers from the book or the analysis cache when possible and
// otherwise starts a search in the background.
func (u *UCI) handleGo(args []string) {
	if u.searchDone != nil {
		select {
		case <-u.searchDone:
		default:
			u.info("Search already in progress")
			return
		}
	}

	limits := parseGoOptions(args)

	if u.options.OwnBook && u.book != nil {
		if m, ok := u.book.Probe(u.position); ok {
			u.info("Book move %s", m)
			u.out.printf("bestmove %s", m)
			return
		}
	}
	evaluator := u.evaluatorKey()
	if a, ok := u.cachedAnalysis(evaluator, limits.Depth); ok {
		u.info("Cached analysis depth %d", a.Depth)
		u.out.printf("info depth %d score %s nodes %d pv %s", a.Depth, formatScore(a.Score), a.Nodes, a.BestMove)
		u.out.printf("bestmove %s", a.BestMove)
		return
	}

	if err := u.engine.Prepare(); err != nil {
		u.info("Search already in progress")
		return
	}
	pos := u.position.Copy()
	u.engine.OnInfo = u.sendInfo

	done := make(chan struct{})
	u.searchDone = done

	go func() {
		defer close(done)

		result, err := u.engine.SearchUCI(pos, limits)
		if err != nil {
			u.info("Search failed: %v", err)
			u.out.printf("bestmove 0000")
			return
		}
		u.record(pos, evaluator, limits.Depth, result)

		if result.BestMove == board.NoMove {
			u.out.printf("bestmove 0000")
			return
		}
		u.out.printf("bestmove %s", result.BestMove)
	}()
}

// cachedAnalysis returns a stored result for the current position searched
// at least to depth. Only depth-limited requests are answered from the cache.
func (u *UCI) cachedAnalysis(evaluator string, depth int) (storage.Analysis, bool) {
	if !u.options.AnalysisCache || u.store == nil || depth <= 0 {
		return storage.Analysis{}, false
	}
	a, err := u.store.LoadAnalysis(evaluator, u.position.Hash)
	if err != nil || a.Depth < depth {
		return storage.Analysis{}, false
	}
	if _, err := u.position.ParseMove(a.BestMove); err != nil {
		return storage.Analysis{}, false
	}
	return a, true
}

// evaluatorKey names the evaluator in use for the analysis cache. Networks
// are told apart by their file.
func (u *UCI) evaluatorKey() string {
	if u.options.EvalType == "NNUE" {
		return "NNUE:" + u.options.NNUEPath
	}
	return u.options.EvalType
}

// record persists search statistics and, for finished searches, the
// analysis cache entry.
func (u *UCI) record(pos *board.Position, evaluator string, depth int, result engine.SearchResult) {
	if u.store == nil {
		return
	}
	if err := u.store.RecordSearch(result.Nodes, result.Time); err != nil {
		u.info("Failed to record search: %v", err)
	}
	if !u.options.AnalysisCache || result.Cancelled || result.BestMove == board.NoMove || depth <= 0 {
		return
	}
	a := storage.Analysis{
		BestMove: result.BestMove.String(),
		Score:    result.Score,
		Depth:    max(result.Depth, depth),
		Nodes:    result.Nodes,
	}
	if err := u.store.SaveAnalysis(evaluator, pos.Hash, a); err != nil {
		u.info("Failed to cache analysis: %v", err)
	}
}

// formatScore renders a score as "cp X" or, for a forced king capture,
// "mate N" in moves.
func formatScore(score int) string {
	if n, ok := engine.MateIn(score); ok {
		return fmt.Sprintf("mate %d", n)
	}
	return fmt.Sprintf("cp %d", score)
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}
	parts = append(parts, "score "+formatScore(info.Score))
	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	// NPS
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	// Hash fullness
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	u.out.printf("info %s", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	select {
	case <-u.searchDone:
	default:
		u.engine.Stop()
		<-u.searchDone
	}
	u.searchDone = nil
}

// waitSearch blocks until a running search finishes on its own.
func (u *UCI) waitSearch() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}
}

// handleEval prints the static evaluation of the current position.
func (u *UCI) handleEval() {
	score := u.engine.Evaluate(u.position)
	if u.position.SideToMove == board.Black {
		score = -score
	}
	u.out.printf("Evaluation: %s (white side) [%s]", engine.ScoreToString(score), u.options.EvalType)
}

func parseDepth(args []string) int {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}
	return depth
}

// handlePerft runs a perft test, splitting the root moves across all CPUs.
func (u *UCI) handlePerft(args []string) {
	depth := parseDepth(args)

	start := time.Now()
	nodes, err := u.engine.PerftParallel(context.Background(), u.position, depth, runtime.NumCPU())
	if err != nil {
		u.info("Perft failed: %v", err)
		return
	}
	elapsed := time.Since(start)

	u.out.printf("Nodes: %d", nodes)
	u.out.printf("Time: %v", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		u.out.printf("NPS: %.0f", nps)
	}
}

// handleDivide prints the perft count below every root move.
func (u *UCI) handleDivide(args []string) {
	depth := parseDepth(args)

	var total uint64
	for _, e := range u.engine.PerftDivide(u.position, depth) {
		u.out.printf("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	u.out.printf("")
	u.out.printf("Nodes: %d", total)
}
