package engine

import (
	"time"

	"github.com/hailam/boomchess/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
}

// moveOverhead is kept back for the round trip to the GUI.
const moveOverhead = 20 * time.Millisecond

// TimeManager turns a clock into a time budget for one move.
type TimeManager struct {
	optimumTime time.Duration // Target time for this move
	maximumTime time.Duration // Hard deadline
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init computes the budget for the side us at game ply. A zero budget means
// the search is not limited by time.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.optimumTime, tm.maximumTime = 0, 0

	if limits.Infinite {
		return
	}

	// Fixed move time mode
	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	timeLeft := limits.Time[us]
	if timeLeft <= 0 {
		return
	}
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Atomic games are short; expect fewer moves as the game goes on.
		mtg = min(max(40-ply/4, 10), 40)
	}

	baseTime := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = baseTime
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// Maximum time: 4x optimum or 80% of remaining, whichever is smaller
	tm.maximumTime = min(tm.optimumTime*4, timeLeft*8/10)
	if tm.maximumTime > timeLeft-moveOverhead {
		tm.maximumTime = timeLeft - moveOverhead
	}

	// Minimum times
	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 20*time.Millisecond {
		tm.maximumTime = 20 * time.Millisecond
	}
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// SearchLimits converts the UCI limits into the limits of one search.
func (tm *TimeManager) SearchLimits(limits UCILimits, us board.Color, ply int) SearchLimits {
	tm.Init(limits, us, ply)
	return SearchLimits{
		Depth:       limits.Depth,
		Nodes:       limits.Nodes,
		MoveTime:    tm.maximumTime,
		OptimumTime: tm.optimumTime,
		Infinite:    limits.Infinite,
	}
}
