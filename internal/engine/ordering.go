package engine

import (
	"github.com/hailam/boomchess/internal/board"
)

// Move ordering priorities
const (
	GoodCaptureBase = 3000000  // Captures that do not lose material
	PromotionBase   = 2000000  // Quiet promotions, plus the promoted piece value
	KillerScore     = 1000000  // Quiet moves that caused a cutoff at this ply
	BadCaptureBase  = -2000000 // Captures whose explosion loses material
)

// historyLimit triggers halving of the whole history table.
const historyLimit = 400000

// MoveOrderer is the per-search context for move generation and ordering.
// Every ply owns its own move buffer so that a deeper ply can generate while
// the shallower buffers stay untouched.
type MoveOrderer struct {
	moves  [MaxPly + 1]board.MoveList
	scores [MaxPly + 1][256]int
	sorted [MaxPly + 1]int

	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly + 1][2]board.Move

	// History heuristic (indexed by [color][from][to])
	history [2][128][128]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and ages the history table. Called once per iteration.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i] = [2]board.Move{}
	}
	mo.ageHistory()
}

// Reset wipes all ordering state. Called on a new game.
func (mo *MoveOrderer) Reset() {
	for i := range mo.killers {
		mo.killers[i] = [2]board.Move{}
	}
	mo.history = [2][128][128]int{}
}

func (mo *MoveOrderer) ageHistory() {
	for c := range mo.history {
		for from := range mo.history[c] {
			for to := range mo.history[c][from] {
				mo.history[c][from][to] /= 2
			}
		}
	}
}

// Generate fills the buffer of the given ply with the pseudo-legal moves of
// pos and scores them. Only captures are generated when capturesOnly is set.
func (mo *MoveOrderer) Generate(pos *board.Position, ply int, capturesOnly bool) int {
	ml := &mo.moves[ply]
	if capturesOnly {
		pos.GenerateCaptures(ml)
	} else {
		pos.GenerateMoves(ml)
	}
	mo.sorted[ply] = 0

	for i := 0; i < ml.Len(); i++ {
		mo.scores[ply][i] = mo.scoreMove(pos, ml.Get(i), ply)
	}
	return ml.Len()
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int) int {
	if m.IsCapture() {
		gain := pos.ExplosionGain(m)
		if gain >= 0 {
			return GoodCaptureBase + gain
		}
		return BadCaptureBase + gain
	}

	if m.IsPromotion() {
		return PromotionBase + board.PieceValue[m.Promotion()]
	}

	if m == mo.killers[ply][0] || m == mo.killers[ply][1] {
		return KillerScore
	}

	return mo.history[pos.SideToMove][m.From()][m.To()]
}

// Len returns the number of moves generated at ply.
func (mo *MoveOrderer) Len(ply int) int {
	return mo.moves[ply].Len()
}

// Sorted returns the i-th best move at ply. The buffer is ordered lazily: a
// selection sort extends the sorted prefix only as far as it is consumed.
func (mo *MoveOrderer) Sorted(ply, i int) board.Move {
	ml := &mo.moves[ply]
	scores := &mo.scores[ply]

	for mo.sorted[ply] <= i {
		k := mo.sorted[ply]
		best := k
		for j := k + 1; j < ml.Len(); j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != k {
			ml.Swap(k, best)
			scores[k], scores[best] = scores[best], scores[k]
		}
		mo.sorted[ply]++
	}
	return ml.Get(i)
}

// SortTT moves the transposition table move to the front of the buffer.
func (mo *MoveOrderer) SortTT(ply int, m board.Move) {
	if m == board.NoMove {
		return
	}
	ml := &mo.moves[ply]
	for i := 0; i < ml.Len(); i++ {
		if ml.Get(i) == m {
			ml.Swap(0, i)
			mo.scores[ply][0], mo.scores[ply][i] = mo.scores[ply][i], mo.scores[ply][0]
			mo.sorted[ply] = 1
			return
		}
	}
}

// IsGoodCapture reports whether m is a capture whose explosion does not lose
// material. Only valid for moves taken from the buffer at ply.
func (mo *MoveOrderer) IsGoodCapture(ply, i int) bool {
	return mo.moves[ply].Get(i).IsCapture() && mo.scores[ply][i] >= GoodCaptureBase
}

// MarkKiller records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) MarkKiller(ply int, m board.Move) {
	if m.IsCapture() || m.IsPromotion() {
		return
	}
	if mo.killers[ply][0] != m {
		mo.killers[ply][1] = mo.killers[ply][0]
		mo.killers[ply][0] = m
	}
}

// Killers returns the killer moves stored for ply.
func (mo *MoveOrderer) Killers(ply int) [2]board.Move {
	return mo.killers[ply]
}

// UpdateHistory rewards a quiet move that caused a beta cutoff.
func (mo *MoveOrderer) UpdateHistory(us board.Color, m board.Move, depth int) {
	if m.IsCapture() || m.IsPromotion() {
		return
	}
	h := &mo.history[us][m.From()][m.To()]
	*h += depth * depth
	if *h > historyLimit {
		mo.ageHistory()
	}
}

// HistoryScore returns the history score for a move.
func (mo *MoveOrderer) HistoryScore(us board.Color, m board.Move) int {
	return mo.history[us][m.From()][m.To()]
}
