package engine

// pawnEntry caches the passed pawn terms of one pawn structure. Only the
// upper half of the pawn key is kept; the lower half selects the slot.
type pawnEntry struct {
	check uint32
	mg    int16
	eg    int16
}

const pawnEntrySize = 8

// PawnTable maps pawn zobrist keys to passed pawn scores.
type PawnTable struct {
	entries []pawnEntry
	mask    uint64
}

// NewPawnTable creates a pawn table of at most sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	n := uint64(max(sizeMB, 1)) * 1024 * 1024 / pawnEntrySize
	size := roundDownToPowerOf2(n)
	return &PawnTable{
		entries: make([]pawnEntry, size),
		mask:    size - 1,
	}
}

// Probe returns the cached middlegame and endgame scores for key.
func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	e := pt.entries[key&pt.mask]
	if e.check != uint32(key>>32) || e == (pawnEntry{}) {
		return 0, 0, false
	}
	return int(e.mg), int(e.eg), true
}

// Store saves the scores for key, replacing whatever shared its slot.
func (pt *PawnTable) Store(key uint64, mg, eg int) {
	pt.entries[key&pt.mask] = pawnEntry{
		check: uint32(key >> 32),
		mg:    int16(mg),
		eg:    int16(eg),
	}
}

// Clear empties the table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
}
