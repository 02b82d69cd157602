package duel

// 凑十玩法的终局计分
// 纯函数且幂等：对同样的两手牌算两次必须得到同样的结果

// ScoreBreakdown 单方的计分明细
type ScoreBreakdown struct {
	Aces        int // A 的张数，每张 1 分
	PlainTens   int // 黑桃/红桃/梅花 10 的张数，每张 1 分
	DiamondTens int // 方块 10 的张数，每张 2 分
	SpadeTwos   int // 黑桃 2 的张数，每张 1 分
	Total       int // 总分
}

// ScoreHand 按单手牌计分
// A = 1 分；黑桃/红桃/梅花 10 = 1 分；方块 10 = 2 分；黑桃 2 = 1 分；
// 其余的牌不计分
func ScoreHand(hand Cards) ScoreBreakdown {
	var sb ScoreBreakdown
	for _, c := range hand {
		switch {
		case c.Value == ValueA:
			sb.Aces++
			sb.Total++
		case c.Value == Value10 && c.Suit == SuitDiamond:
			sb.DiamondTens++
			sb.Total += 2
		case c.Value == Value10:
			sb.PlainTens++
			sb.Total++
		case c.Value == Value2 && c.Suit == SuitSpade:
			sb.SpadeTwos++
			sb.Total++
		}
	}
	return sb
}

// FinalScore 终局计分
// 只在摸牌堆耗尽且至少一方手牌非空时调用一次；剩余的弃牌先全部归
// 最后一次成功凑十的一方（lastMover），再分别按手牌计分。
// 分高者胜，平分没有胜者。不修改传入的对局状态。
func FinalScore(gs *GameState, lastMover Seat) (south, north ScoreBreakdown, winner Seat) {
	southHand := gs.Hand(SeatSouth).Clone()
	northHand := gs.Hand(SeatNorth).Clone()

	switch lastMover {
	case SeatSouth:
		southHand = append(southHand, gs.Discard...)
	case SeatNorth:
		northHand = append(northHand, gs.Discard...)
	}

	south = ScoreHand(southHand)
	north = ScoreHand(northHand)

	switch {
	case south.Total > north.Total:
		winner = SeatSouth
	case north.Total > south.Total:
		winner = SeatNorth
	default:
		winner = SeatNone
	}
	return south, north, winner
}
