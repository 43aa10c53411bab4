package board

// Attack tables indexed by (target - origin + 119). On a 0x88 board every
// difference between two squares names exactly one direction, so one lookup
// tells which piece types could reach the target and along which ray.
const attackOffset = 119

const (
	whitePawnAttack uint8 = 1 << 0
	blackPawnAttack uint8 = 1 << 7
)

var (
	attackTable [2*attackOffset + 1]uint8
	rayStep     [2*attackOffset + 1]Square
)

func init() {
	for _, d := range knightOffsets {
		attackTable[d+attackOffset] |= 1 << Knight
	}
	for _, d := range kingOffsets {
		attackTable[d+attackOffset] |= 1 << King
	}
	for _, d := range rookDirections {
		for k := Square(1); k < 8; k++ {
			attackTable[d*k+attackOffset] |= 1<<Rook | 1<<Queen
			rayStep[d*k+attackOffset] = d
		}
	}
	for _, d := range bishopDirections {
		for k := Square(1); k < 8; k++ {
			attackTable[d*k+attackOffset] |= 1<<Bishop | 1<<Queen
			rayStep[d*k+attackOffset] = d
		}
	}
	attackTable[Up+Left+attackOffset] |= whitePawnAttack
	attackTable[Up+Right+attackOffset] |= whitePawnAttack
	attackTable[Down+Left+attackOffset] |= blackPawnAttack
	attackTable[Down+Right+attackOffset] |= blackPawnAttack
}

func attackBit(pt PieceType, c Color) uint8 {
	if pt == Pawn {
		if c == White {
			return whitePawnAttack
		}
		return blackPawnAttack
	}
	return 1 << pt
}

// IsSquareAttacked reports whether a piece of color by could capture on sq.
// Kings never capture in atomic chess, so they do not attack.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	for pt := Pawn; pt <= Queen; pt++ {
		bit := attackBit(pt, by)
		list := &p.pieceLists[by][pt]
		for i := 0; i < p.pieceCounts[by][pt]; i++ {
			from := list[i]
			idx := sq - from + attackOffset
			if attackTable[idx]&bit == 0 {
				continue
			}
			if pt == Pawn || pt == Knight {
				return true
			}
			step := rayStep[idx]
			s := from + step
			for s != sq && p.squares[s].Type == Empty {
				s += step
			}
			if s == sq {
				return true
			}
		}
	}
	return false
}

// IsAttacked reports whether the side not to move attacks sq.
func (p *Position) IsAttacked(sq Square) bool {
	return p.IsSquareAttacked(sq, p.SideToMove.Other())
}

// KingsAdjacent reports whether both kings exist and touch. Neither can then
// be captured without destroying the capturer's own king.
func (p *Position) KingsAdjacent() bool {
	if !p.HasKing(White) || !p.HasKing(Black) {
		return false
	}
	idx := p.KingSquare(White) - p.KingSquare(Black) + attackOffset
	return attackTable[idx]&(1<<King) != 0
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	us := p.SideToMove
	if !p.HasKing(us) || p.KingsAdjacent() {
		return false
	}
	return p.IsSquareAttacked(p.KingSquare(us), us.Other())
}

// IsLegal is called right after MakeMove and judges the move just made. It is
// illegal when the mover's king exploded, or when the mover's king stands in
// check and the move did not destroy the enemy king.
func (p *Position) IsLegal() bool {
	mover := p.SideToMove.Other()
	if !p.HasKing(mover) {
		return false
	}
	if !p.HasKing(p.SideToMove) {
		return true
	}
	if p.KingsAdjacent() {
		return true
	}
	return !p.IsSquareAttacked(p.KingSquare(mover), p.SideToMove)
}

// IsKingCaptured reports whether the king of color c has exploded.
func (p *Position) IsKingCaptured(c Color) bool {
	return !p.HasKing(c)
}

// ExplosionGain estimates the material balance of a capture for the side to
// move: the mover is lost; the victim and every non-pawn piece around the
// destination count for or against the mover by color.
func (p *Position) ExplosionGain(m Move) int {
	us := p.SideToMove
	from, to := m.From(), m.To()
	target := to
	if m.Has(FlagEnPassant) {
		target = to - pawnPush(us)
	}

	gain := p.squares[target].Value() - p.squares[from].Value()
	for _, d := range kingOffsets {
		sq := to + d
		if !sq.OnBoard() || sq == from || sq == target {
			continue
		}
		pc := p.squares[sq]
		if pc.Type == Empty || pc.Type == Pawn {
			continue
		}
		if pc.Color == us {
			gain -= pc.Value()
		} else {
			gain += pc.Value()
		}
	}
	return gain
}
