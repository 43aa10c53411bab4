package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
// A pawn capture onto the last rank is generated once because the pawn
// explodes, but it counts four times to agree with tools that emit one move
// per promotion piece.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml MoveList
	p.GenerateMoves(&ml)

	var nodes uint64
	for _, m := range ml.Slice() {
		p.MakeMove(m)
		if p.IsLegal() {
			nodes += p.Perft(depth-1) * PerftWeight(m)
		}
		p.UnmakeMove()
	}
	return nodes
}

// PerftEntry is the subtree size below one root move.
type PerftEntry struct {
	Move  Move
	Nodes uint64
}

// PerftDivide returns the perft count of every legal root move.
func (p *Position) PerftDivide(depth int) []PerftEntry {
	legal := p.GenerateLegalMoves()
	entries := make([]PerftEntry, 0, legal.Len())
	for _, m := range legal.Slice() {
		p.MakeMove(m)
		entries = append(entries, PerftEntry{Move: m, Nodes: p.Perft(depth-1) * PerftWeight(m)})
		p.UnmakeMove()
	}
	return entries
}

// PerftWeight is the number of reference-tool moves a generated move stands for.
func PerftWeight(m Move) uint64 {
	if m.isCapturePromotion() {
		return 4
	}
	return 1
}
