// Package engine implements the atomic chess search engine.
package engine

import (
	"fmt"
	"strings"

	"github.com/hailam/boomchess/internal/board"
)

// Score bounds. A side whose king has exploded scores EvalMin.
const (
	EvalMax = 100000
	EvalMin = -EvalMax
)

// evalLimit keeps static scores well clear of win/loss scores.
const evalLimit = EvalMax / 2

// Evaluator scores a position from the side to move's perspective.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// EvalType selects the hand-crafted evaluation terms.
type EvalType int

const (
	EvalFull   EvalType = iota // material, tables, pawns, mobility, king safety
	EvalSimple                 // material and piece-square tables only
)

func (t EvalType) String() string {
	if t == EvalSimple {
		return "SIMPLE"
	}
	return "FULL"
}

// ParseEvalType parses a hand-crafted evaluation name (FULL or SIMPLE).
func ParseEvalType(s string) (EvalType, error) {
	switch strings.ToUpper(s) {
	case "FULL":
		return EvalFull, nil
	case "SIMPLE":
		return EvalSimple, nil
	}
	return EvalFull, fmt.Errorf("unknown eval type %q", s)
}

// Material weights indexed by piece type. Kings are never counted since a
// position without one is decided before material matters.
var pieceWeights = [board.NumPieceTypes]int{0, 100, 300, 300, 500, 900, 0}

// Passed pawn bonuses by relative rank (index 0 = rank 1)
var (
	passedPawnMg = [8]int{0, 5, 10, 15, 25, 40, 70, 0}
	passedPawnEg = [8]int{0, 10, 15, 25, 45, 75, 120, 0}
)

const mobilityWeight = 4

// King safety weights. Pieces next to a king go up in the same explosion.
const (
	attackedKingSquarePenalty = 12
	kingTouchPenalty          = 8
)

// Percentage by which the score is pulled to zero, by distance between kings.
// Adjacent kings can never be checked, which makes mating much harder.
var (
	kingsTouchFactorMg = [8]int{0, 50, 10, 0, 0, 0, 0, 0}
	kingsTouchFactorEg = [8]int{0, 80, 25, 5, 0, 0, 0, 0}
)

// Phase weights per piece type; a full set of pieces sums to totalPhase.
var phaseWeights = [board.NumPieceTypes]int{0, 0, 1, 1, 2, 4, 0}

const totalPhase = 24

// Piece-Square Tables, written from White's side with rank 8 on top.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	78, 83, 86, 73, 102, 82, 85, 90,
	7, 29, 21, 44, 40, 31, 44, 7,
	-17, 16, -2, 15, 14, 0, 15, -13,
	-26, 3, 10, 9, 6, 1, 0, -23,
	-22, 9, 5, -11, -10, -2, 3, -19,
	-31, 8, -7, -37, -36, -14, 3, -31,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-66, -53, -75, -75, -10, -55, -58, -70,
	-3, -6, 100, -36, 4, 62, -4, -14,
	10, 67, 1, 74, 73, 27, 62, -2,
	24, 24, 45, 37, 33, 41, 25, 17,
	-1, 5, 31, 21, 22, 35, 2, 0,
	-18, 10, 13, 22, 18, 15, 11, -14,
	-23, -15, 2, 0, 2, 0, -23, -20,
	-74, -23, -26, -24, -19, -35, -22, -69,
}

var bishopPST = [64]int{
	-59, -78, -82, -76, -23, -107, -37, -50,
	-11, 20, 35, -42, -39, 31, 2, -22,
	-9, 39, -32, 41, 52, -10, 28, -14,
	25, 17, 20, 34, 26, 25, 15, 10,
	13, 10, 17, 23, 17, 16, 0, 7,
	14, 25, 24, 15, 8, 25, 20, 15,
	19, 20, 11, 6, 7, 6, 20, 16,
	-7, 2, -15, -12, -14, -15, -10, -10,
}

var rookPST = [64]int{
	35, 29, 33, 4, 37, 33, 56, 50,
	55, 29, 56, 67, 55, 62, 34, 60,
	19, 35, 28, 33, 45, 27, 25, 15,
	0, 5, 16, 13, 18, -4, -9, -6,
	-28, -35, -16, -21, -13, -29, -46, -30,
	-42, -28, -42, -25, -25, -35, -26, -46,
	-53, -38, -31, -26, -29, -43, -44, -53,
	-30, -24, -18, 5, -2, -18, -31, -32,
}

var queenPST = [64]int{
	6, 1, -8, -104, 69, 24, 88, 26,
	14, 32, 60, -10, 20, 76, 57, 24,
	-2, 43, 32, 60, 72, 63, 43, 2,
	1, -16, 22, 17, 25, 20, -13, -6,
	-14, -15, -2, -5, -1, -10, -20, -22,
	-30, -6, -13, -11, -16, -11, -16, -27,
	-36, -18, 0, -19, -15, -15, -21, -38,
	-39, -30, -31, -13, -31, -36, -34, -42,
}

// King PST (middlegame)
var kingMidgamePST = [64]int{
	4, 54, 47, -99, -99, 60, 83, -62,
	-32, 10, 55, 56, 56, 55, 10, 3,
	-62, 12, -57, 44, -67, 28, 37, -31,
	-55, 50, 11, -4, -19, 13, 0, -49,
	-55, -43, -52, -28, -51, -47, -8, -50,
	-47, -42, -43, -79, -64, -32, -29, -32,
	-4, 3, -14, -50, -57, -18, 13, 4,
	17, 30, -3, -14, 6, -1, 40, 18,
}

// King PST (endgame) - king should be active
var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [board.NumPieceTypes]*[64]int{
	nil, &pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMidgamePST,
}

// pstIndex maps a square to its table index for the given color.
func pstIndex(sq board.Square, c board.Color) int {
	if c == board.White {
		return (7-sq.Rank())*8 + sq.File()
	}
	return sq.Rank()*8 + sq.File()
}

// HandCrafted is the formula-based evaluator. It keeps a pawn hash table and
// must not be shared between concurrent searches.
type HandCrafted struct {
	Mode  EvalType
	pawns *PawnTable
}

// NewHandCrafted creates a hand-crafted evaluator.
func NewHandCrafted(mode EvalType) *HandCrafted {
	return &HandCrafted{
		Mode:  mode,
		pawns: NewPawnTable(1),
	}
}

// Evaluate returns the static evaluation from the side to move's perspective.
func (h *HandCrafted) Evaluate(pos *board.Position) int {
	us := pos.SideToMove
	if !pos.HasKing(us) {
		return EvalMin
	}
	if !pos.HasKing(us.Other()) {
		return EvalMax
	}

	score := h.evaluateWhite(pos)
	if score > evalLimit {
		score = evalLimit
	} else if score < -evalLimit {
		score = -evalLimit
	}

	if us == board.Black {
		return -score
	}
	return score
}

// evaluateWhite returns the score from White's perspective. Both kings must
// be on the board.
func (h *HandCrafted) evaluateWhite(pos *board.Position) int {
	phase := gamePhase(pos)

	var mg, eg int
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			for _, sq := range pos.PieceSquares(c, pt) {
				idx := pstIndex(sq, c)
				mg += sign * (pieceWeights[pt] + psts[pt][idx])
				if pt == board.King && h.Mode == EvalFull {
					eg += sign * kingEndgamePST[idx]
				} else {
					eg += sign * (pieceWeights[pt] + psts[pt][idx])
				}
			}
		}
	}

	if h.Mode == EvalSimple {
		return interpolate(mg, eg, phase)
	}

	pmg, peg := h.passedPawns(pos)
	mg += pmg
	eg += peg

	score := interpolate(mg, eg, phase)
	score += mobility(pos)
	score += kingSafety(pos)

	return score * (100 - kingsTouchFactor(pos, phase)) / 100
}

// gamePhase returns 0 for the opening and 256 once the pieces are gone.
func gamePhase(pos *board.Position) int {
	phase := totalPhase
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase -= phaseWeights[pt] * pos.PieceCount(c, pt)
		}
	}
	if phase < 0 {
		phase = 0
	}
	return (phase*256 + totalPhase/2) / totalPhase
}

func interpolate(mg, eg, phase int) int {
	return (mg*(256-phase) + eg*phase) / 256
}

// passedPawns scores passed pawns from White's perspective, cached by pawn key.
func (h *HandCrafted) passedPawns(pos *board.Position) (mg, eg int) {
	if mg, eg, found := h.pawns.Probe(pos.PawnKey); found {
		return mg, eg
	}

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for _, sq := range pos.PieceSquares(c, board.Pawn) {
			if isPassedPawn(pos, sq, c) {
				rr := sq.RelativeRank(c)
				mg += sign * passedPawnMg[rr]
				eg += sign * passedPawnEg[rr]
			}
		}
	}

	h.pawns.Store(pos.PawnKey, mg, eg)
	return mg, eg
}

// isPassedPawn reports whether no enemy pawn stands ahead of the pawn on sq
// on its own or an adjacent file.
func isPassedPawn(pos *board.Position, sq board.Square, c board.Color) bool {
	file, rr := sq.File(), sq.RelativeRank(c)
	for _, e := range pos.PieceSquares(c.Other(), board.Pawn) {
		df := e.File() - file
		if df < -1 || df > 1 {
			continue
		}
		if e.RelativeRank(c) > rr {
			return false
		}
	}
	return true
}

// mobility compares pseudo-legal move counts, counting the opponent's moves
// through a null move.
func mobility(pos *board.Position) int {
	var ml board.MoveList
	pos.GenerateMoves(&ml)
	ours := ml.Len()

	pos.MakeNullMove()
	pos.GenerateMoves(&ml)
	theirs := ml.Len()
	pos.UnmakeNullMove()

	delta := ours - theirs
	if pos.SideToMove == board.Black {
		delta = -delta
	}
	return delta * mobilityWeight
}

var kingRing = [8]board.Square{
	board.Up, board.Down, board.Left, board.Right,
	board.Up + board.Left, board.Up + board.Right,
	board.Down + board.Left, board.Down + board.Right,
}

// kingSafety penalizes attacked squares next to each king and own non-pawn
// pieces touching it. An attacked square holding such a piece counts twice.
func kingSafety(pos *board.Position) int {
	var attacked, touching [2]int

	for c := board.White; c <= board.Black; c++ {
		ksq := pos.KingSquare(c)
		for _, d := range kingRing {
			sq := ksq + d
			if !sq.OnBoard() {
				continue
			}
			pc := pos.PieceAt(sq)
			touches := !pc.IsEmpty() && pc.Color == c && pc.Type != board.Pawn
			hit := pos.IsSquareAttacked(sq, c.Other())

			if touches {
				touching[c]++
			}
			if hit {
				attacked[c]++
				if touches {
					attacked[c]++
				}
			}
		}
	}

	return (attacked[board.Black]-attacked[board.White])*attackedKingSquarePenalty +
		(touching[board.Black]-touching[board.White])*kingTouchPenalty
}

// kingsTouchFactor returns the percentage by which to shrink the score.
func kingsTouchFactor(pos *board.Position, phase int) int {
	d := board.Distance(pos.KingSquare(board.White), pos.KingSquare(board.Black))
	return interpolate(kingsTouchFactorMg[d], kingsTouchFactorEg[d], phase)
}

// EvaluateMaterial returns the material balance from White's perspective.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt <= board.Queen; pt++ {
		score += pieceWeights[pt] * (pos.PieceCount(board.White, pt) - pos.PieceCount(board.Black, pt))
	}
	return score
}
