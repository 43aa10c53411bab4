package board

var queenDirections = kingOffsets

// GenerateMoves fills ml with the pseudo-legal moves of the side to move.
// Moves that explode the mover's own king or leave it in check are included;
// callers reject them with IsLegal after MakeMove. A side whose king has
// exploded has no moves.
func (p *Position) GenerateMoves(ml *MoveList) {
	ml.Clear()
	us := p.SideToMove
	if !p.HasKing(us) {
		return
	}

	p.generateLeaper(ml, us, Knight, knightOffsets[:])
	p.generateSlider(ml, us, Queen, queenDirections[:])
	p.generateSlider(ml, us, Bishop, bishopDirections[:])
	p.generateSlider(ml, us, Rook, rookDirections[:])
	p.generatePawnMoves(ml, us)
	p.generateKingMoves(ml, us)
}

// GenerateCaptures fills ml with the pseudo-legal captures only.
func (p *Position) GenerateCaptures(ml *MoveList) {
	var all MoveList
	p.GenerateMoves(&all)
	ml.Clear()
	for _, m := range all.Slice() {
		if m.IsCapture() {
			ml.Add(m)
		}
	}
}

// GenerateLegalMoves returns all legal moves.
func (p *Position) GenerateLegalMoves() *MoveList {
	var pseudo MoveList
	p.GenerateMoves(&pseudo)

	legal := NewMoveList()
	for _, m := range pseudo.Slice() {
		p.MakeMove(m)
		if p.IsLegal() {
			legal.Add(m)
		}
		p.UnmakeMove()
	}
	return legal
}

// HasLegalMove reports whether the side to move has at least one legal move.
func (p *Position) HasLegalMove() bool {
	var pseudo MoveList
	p.GenerateMoves(&pseudo)
	for _, m := range pseudo.Slice() {
		p.MakeMove(m)
		ok := p.IsLegal()
		p.UnmakeMove()
		if ok {
			return true
		}
	}
	return false
}

func (p *Position) generateLeaper(ml *MoveList, us Color, pt PieceType, offsets []Square) {
	for _, from := range p.PieceSquares(us, pt) {
		for _, d := range offsets {
			to := from + d
			if !to.OnBoard() {
				continue
			}
			target := p.squares[to]
			if target.Type == Empty {
				ml.Add(NewMove(from, to, 0))
			} else if target.Color != us {
				ml.Add(NewMove(from, to, FlagCapture))
			}
		}
	}
}

func (p *Position) generateSlider(ml *MoveList, us Color, pt PieceType, dirs []Square) {
	for _, from := range p.PieceSquares(us, pt) {
		for _, d := range dirs {
			for to := from + d; to.OnBoard(); to += d {
				target := p.squares[to]
				if target.Type == Empty {
					ml.Add(NewMove(from, to, 0))
					continue
				}
				if target.Color != us {
					ml.Add(NewMove(from, to, FlagCapture))
				}
				break
			}
		}
	}
}

var promotionFlags = [4]MoveFlag{FlagKnightPromotion, FlagBishopPromotion, FlagRookPromotion, FlagQueenPromotion}

func (p *Position) generatePawnMoves(ml *MoveList, us Color) {
	push := pawnPush(us)
	for _, from := range p.PieceSquares(us, Pawn) {
		to := from + push
		if !to.OnBoard() {
			continue
		}
		rel := from.RelativeRank(us)

		if p.squares[to].Type == Empty {
			if rel == 6 {
				for _, f := range promotionFlags {
					ml.Add(NewMove(from, to, FlagPawnMove|f))
				}
			} else {
				ml.Add(NewMove(from, to, FlagPawnMove))
				if rel == 1 && p.squares[to+push].Type == Empty {
					ml.Add(NewMove(from, to+push, FlagPawnMove|FlagDoublePawn))
				}
			}
		}

		for _, side := range [2]Square{Left, Right} {
			t := to + side
			if !t.OnBoard() {
				continue
			}
			target := p.squares[t]
			if target.Type != Empty {
				if target.Color != us {
					ml.Add(NewMove(from, t, FlagPawnMove|FlagCapture))
				}
			} else if t == p.EnPassant {
				victim := p.squares[t-push]
				if victim.Type == Pawn && victim.Color != us {
					ml.Add(NewMove(from, t, FlagPawnMove|FlagCapture|FlagEnPassant))
				}
			}
		}
	}
}

// generateKingMoves adds king steps and castles. Kings cannot capture.
func (p *Position) generateKingMoves(ml *MoveList, us Color) {
	from := p.KingSquare(us)
	for _, d := range kingOffsets {
		to := from + d
		if to.OnBoard() && p.squares[to].Type == Empty {
			ml.Add(NewMove(from, to, 0))
		}
	}

	home := E1
	if us == Black {
		home = E8
	}
	if from != home {
		return
	}
	them := us.Other()
	ownRook := func(sq Square) bool {
		pc := p.squares[sq]
		return pc.Type == Rook && pc.Color == us
	}

	if p.CastlingRights.CanCastle(us, true) &&
		p.IsEmpty(home+1) && p.IsEmpty(home+2) && ownRook(home+3) &&
		!p.IsSquareAttacked(home, them) &&
		!p.IsSquareAttacked(home+1, them) &&
		!p.IsSquareAttacked(home+2, them) {
		ml.Add(NewMove(home, home+2, FlagCastleKingSide))
	}

	if p.CastlingRights.CanCastle(us, false) &&
		p.IsEmpty(home-1) && p.IsEmpty(home-2) && p.IsEmpty(home-3) && ownRook(home-4) &&
		!p.IsSquareAttacked(home, them) &&
		!p.IsSquareAttacked(home-1, them) &&
		!p.IsSquareAttacked(home-2, them) {
		ml.Add(NewMove(home, home-2, FlagCastleQueenSide))
	}
}
