package engine

import (
	"github.com/hailam/boomchess/internal/board"
)

// Bound indicates how a stored score relates to the true value.
type Bound uint8

const (
	BoundUpper Bound = iota // Failed low
	BoundLower              // Failed high (beta cutoff)
	BoundExact              // Exact score
)

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64     // Full 64-bit Zobrist hash for verification
	BestMove board.Move // Best move found
	Score    int32      // Score (bounded by Bound)
	Depth    int16      // Search depth
	Bound    Bound      // Type of bound
}

// TranspositionTable is a flat hash table for storing search results.
// A new entry always replaces the old one in its slot. It is owned by one
// search at a time and takes no locks.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	mask    uint64
	used    uint64

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
// A size of zero or less yields a disabled table that never stores anything.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table, dropping all entries.
func (tt *TranspositionTable) Resize(sizeMB int) {
	if sizeMB <= 0 {
		*tt = TranspositionTable{}
		return
	}

	entrySize := uint64(24) // Size of TTEntry
	numEntries := (uint64(sizeMB) * 1024 * 1024) / entrySize

	// Round down to power of 2 for fast modulo
	numEntries = roundDownToPowerOf2(numEntries)

	*tt = TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
		mask:    numEntries - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Enabled reports whether the table stores anything.
func (tt *TranspositionTable) Enabled() bool {
	return tt.size > 0
}

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns empty entry and false.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	if tt.size == 0 {
		return TTEntry{}, false
	}
	tt.probes++

	entry := tt.entries[hash&tt.mask]
	if entry.Key == hash && entry.Depth > 0 {
		tt.hits++
		return entry, true
	}

	return TTEntry{}, false
}

// Store saves a position in the transposition table, overwriting the slot.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, bound Bound, bestMove board.Move) {
	if tt.size == 0 {
		return
	}

	entry := &tt.entries[hash&tt.mask]
	if entry.Depth == 0 {
		tt.used++
	}
	*entry = TTEntry{
		Key:      hash,
		BestMove: bestMove,
		Score:    int32(score),
		Depth:    int16(depth),
		Bound:    bound,
	}
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.used = 0
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	if tt.size == 0 {
		return 0
	}
	return int(tt.used * 1000 / tt.size)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored win/loss score back to the current ply.
// Stored scores count the distance from the stored node, not from the root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > EvalMax-MaxPly {
		return score - ply
	}
	if score < EvalMin+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > EvalMax-MaxPly {
		return score + ply
	}
	if score < EvalMin+MaxPly {
		return score - ply
	}
	return score
}
