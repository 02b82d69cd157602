package duel

// 疯狂八玩法的规则引擎
// 非法操作一律按无操作处理而不是返回错误：调用方应当先用 CanPlay 预检，
// 引擎内部的校验只是兜底

// CanPlay 判断一张牌当前是否可以打出
// 合法条件按优先级：弃牌堆为空（任何牌都可以开局）、牌是 8（万能牌，
// 无视花色和点数）、花色跟上 currentSuit、点数和堆顶相同
func CanPlay(card Card, top *Card, currentSuit Suit) bool {
	if top == nil {
		return true
	}
	if card.Value == Value8 {
		return true
	}
	return card.Suit == currentSuit || card.Value == top.Value
}

// HasPlayableCard 手牌中是否存在可以打出的牌
func HasPlayableCard(hand Cards, top *Card, currentSuit Suit) bool {
	for _, c := range hand {
		if CanPlay(c, top, currentSuit) {
			return true
		}
	}
	return false
}

// PlayCard 打出手牌中 handIndex 位置的牌
//
// 打出 8 时：chosenSuit 非 SuitNone 则直接改写 currentSuit，否则进入
// ChooseSuit 状态等待声明，期间 currentSuit 保持不变。打出其他牌时
// currentSuit 跟随所出牌的花色。
//
// 默认出牌后交换行动权；keepTurn 为 true 时保留在出牌方（部分流程允许
// 摸牌后继续出，属于调用方策略不是引擎默认）。
//
// handIndex 越界、对局已结束、或 ChooseSuit 未决时都是无操作，返回 false。
func (gs *GameState) PlayCard(seat Seat, handIndex int, chosenSuit Suit, keepTurn bool) bool {
	ss := gs.Seat(seat)
	if ss == nil || gs.IsFinished() || gs.ChooseSuit {
		return false
	}
	if handIndex < 0 || handIndex >= len(ss.Hand) {
		return false
	}

	card := ss.Hand[handIndex]
	ss.Hand = append(ss.Hand[:handIndex:handIndex], ss.Hand[handIndex+1:]...)
	gs.Discard = append(gs.Discard, card)

	if card.Value == Value8 {
		if chosenSuit != SuitNone {
			gs.CurrentSuit = chosenSuit
		} else {
			gs.ChooseSuit = true
		}
	} else {
		gs.CurrentSuit = card.Suit
	}

	if len(ss.Hand) == 0 {
		gs.Winner = seat
	}

	if !keepTurn {
		gs.advanceTurn()
	}
	return true
}

// ResolveSuit 声明 8 生效后的花色，结束 ChooseSuit 状态
func (gs *GameState) ResolveSuit(suit Suit) bool {
	if !gs.ChooseSuit || suit == SuitNone {
		return false
	}
	gs.CurrentSuit = suit
	gs.ChooseSuit = false
	return true
}

// DrawCard 从摸牌堆头部摸一张牌进指定座位的手牌
// 不改变行动权（摸牌后是否让出回合是调用方策略）
// 摸牌堆为空、对局已结束、或 ChooseSuit 未决时是无操作
func (gs *GameState) DrawCard(seat Seat) bool {
	ss := gs.Seat(seat)
	if ss == nil || gs.IsFinished() || gs.ChooseSuit {
		return false
	}
	if len(gs.Stock) == 0 {
		return false
	}

	card := gs.Stock[0]
	gs.Stock = gs.Stock[1:]
	ss.Hand = append(ss.Hand, card)
	return true
}

// PassTurn 主动让出行动权
func (gs *GameState) PassTurn() {
	gs.advanceTurn()
}
