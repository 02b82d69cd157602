package duel

// 暂存堆的搬运操作
// 暂存堆是收走前的中间堆：牌可以从自己手牌或公共弃牌堆放进去，
// 之后整体收走（banked），不再参与对局

// StageFromHand 把手牌中 handIndex 位置的牌移入自己的暂存堆
func (gs *GameState) StageFromHand(seat Seat, handIndex int) bool {
	ss := gs.Seat(seat)
	if ss == nil || gs.IsFinished() {
		return false
	}
	if handIndex < 0 || handIndex >= len(ss.Hand) {
		return false
	}

	card := ss.Hand[handIndex]
	ss.Hand = append(ss.Hand[:handIndex:handIndex], ss.Hand[handIndex+1:]...)
	ss.TempDeck = append(ss.TempDeck, card)
	ss.TempDeckSum = ss.TempDeck.ClaimSum()
	return true
}

// StageFromDiscard 把弃牌堆中 discardIndex 位置的牌收入自己的暂存堆
func (gs *GameState) StageFromDiscard(seat Seat, discardIndex int) bool {
	ss := gs.Seat(seat)
	if ss == nil || gs.IsFinished() {
		return false
	}
	if discardIndex < 0 || discardIndex >= len(gs.Discard) {
		return false
	}

	card := gs.Discard[discardIndex]
	gs.Discard = append(gs.Discard[:discardIndex:discardIndex], gs.Discard[discardIndex+1:]...)
	ss.TempDeck = append(ss.TempDeck, card)
	ss.TempDeckSum = ss.TempDeck.ClaimSum()
	return true
}

// BankStaging 把暂存堆整体收走
func (gs *GameState) BankStaging(seat Seat) bool {
	ss := gs.Seat(seat)
	if ss == nil || len(ss.TempDeck) == 0 {
		return false
	}

	ss.Deck = append(ss.Deck, ss.TempDeck...)
	ss.TempDeck = nil
	ss.TempDeckSum = 0
	return true
}
