package duel

import "sort"

// 凑十玩法（Top10）的规则引擎
// 叠加在同一个 GameState 之上，用它自己的回合状态管理选牌和摸牌限制
// 这副玩法的牌堆不含 J/Q/K/王（见 NewClaimDeck），开局可以不发牌，
// 弃牌堆允许为空且没有 currentSuit 概念

// TopTen 一局凑十玩法的回合状态
// 回合内的标志（本回合是否摸过牌、选中的牌）是显式字段而不是包级变量，
// 方便在同一个进程里并行模拟多个对局
type TopTen struct {
	State *GameState

	HasDrawn  bool  // 本回合是否已经用掉了唯一一次摸牌机会
	Claims    int   // 本回合已成功凑十的次数
	Selection []int // 当前选中的弃牌堆索引
	Pinned    int   // 摸牌后自动加入选区的弃牌堆索引，不可被玩家取消，-1 表示没有
	LastMover Seat  // 最近一次成功凑十的一方，终局时剩余弃牌归它
}

// NewTopTen 在给定对局状态上开始凑十玩法
func NewTopTen(gs *GameState) *TopTen {
	return &TopTen{
		State:  gs,
		Pinned: -1,
	}
}

// Draw 当前行动方摸一张牌
//
// 摸到 10 时：直接进入摸牌方手牌，永远不会落到弃牌堆，并且不消耗本回合
// 的摸牌机会（所以可以继续摸）。其余的牌落到弃牌堆顶并被自动选中锁定。
//
// 不在自己回合、已经摸过、或摸牌堆为空时是无操作。
func (t *TopTen) Draw(seat Seat) bool {
	gs := t.State
	ss := gs.Seat(seat)
	if ss == nil || gs.Turn != seat || t.HasDrawn {
		return false
	}
	if len(gs.Stock) == 0 {
		return false
	}

	card := gs.Stock[0]
	gs.Stock = gs.Stock[1:]

	if card.Value == Value10 {
		ss.Hand = append(ss.Hand, card)
		return true
	}

	gs.Discard = append(gs.Discard, card)
	t.HasDrawn = true

	// 摸到的牌自动进选区并锁定
	t.Pinned = len(gs.Discard) - 1
	t.Selection = append(t.Selection, t.Pinned)
	return true
}

// IsSelected 指定弃牌堆索引是否在选区中
func (t *TopTen) IsSelected(index int) bool {
	for _, i := range t.Selection {
		if i == index {
			return true
		}
	}
	return false
}

// ToggleSelect 选中或取消选中弃牌堆中的一张牌
// 被锁定的索引（本回合摸到的那张）不可取消，只有完成凑十或新的对局动作
// 才会清掉它
func (t *TopTen) ToggleSelect(index int) bool {
	if index < 0 || index >= len(t.State.Discard) {
		return false
	}
	if index == t.Pinned && t.IsSelected(index) {
		return false
	}

	for i, sel := range t.Selection {
		if sel == index {
			t.Selection = append(t.Selection[:i:i], t.Selection[i+1:]...)
			return true
		}
	}
	t.Selection = append(t.Selection, index)
	return true
}

// CanIncludeOpponentTop 当前是否允许把对手的第一张手牌并入凑十
// 前提：本回合已经摸过牌，并且已经至少凑成过一次
func (t *TopTen) CanIncludeOpponentTop() bool {
	return t.HasDrawn && t.Claims >= 1
}

// ClaimSum 当前选区的数值和
// includeOpponentTop 为 true 时把对手的顶张手牌一并计入
func (t *TopTen) ClaimSum(seat Seat, includeOpponentTop bool) int {
	sum := 0
	for _, i := range t.Selection {
		if i >= 0 && i < len(t.State.Discard) {
			sum += t.State.Discard[i].ClaimValue()
		}
	}
	if includeOpponentTop {
		if top, ok := t.State.Hand(seat.Other()).Top(); ok {
			sum += top.ClaimValue()
		}
	}
	return sum
}

// ResolveClaim 结算当前选区
//
// 选区（加上可选的对手顶张）数值和恰好等于 10 才成立；9 和 11 都不行。
// 成立时所有选中的弃牌和对手顶张（若计入）按数值从大到小排序后并入
// 凑十方手牌，本回合的摸牌机会标记为已消耗（这样弃牌堆保持可交互，
// 同一回合内可以继续连锁凑十），选区和锁定清空。
//
// 不在自己回合、选区为空、数值和不等于 10、或者在不满足
// CanIncludeOpponentTop 的情况下要求计入对手顶张时，都是无操作。
func (t *TopTen) ResolveClaim(seat Seat, includeOpponentTop bool) bool {
	gs := t.State
	ss := gs.Seat(seat)
	if ss == nil || gs.Turn != seat || len(t.Selection) == 0 {
		return false
	}
	if includeOpponentTop && !t.CanIncludeOpponentTop() {
		return false
	}

	opp := gs.Seat(seat.Other())
	if includeOpponentTop && len(opp.Hand) == 0 {
		return false
	}

	if t.ClaimSum(seat, includeOpponentTop) != 10 {
		return false
	}

	// 从大索引往小移除，避免前面的移除挪动后面的位置
	indices := make([]int, len(t.Selection))
	copy(indices, t.Selection)
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	claimed := make(Cards, 0, len(indices)+1)
	for _, i := range indices {
		if i < 0 || i >= len(gs.Discard) {
			return false
		}
		claimed = append(claimed, gs.Discard[i])
		gs.Discard = append(gs.Discard[:i:i], gs.Discard[i+1:]...)
	}

	if includeOpponentTop {
		top := opp.Hand[len(opp.Hand)-1]
		opp.Hand = opp.Hand[:len(opp.Hand)-1]
		claimed = append(claimed, top)
	}

	// 并入手牌前按数值从大到小排序
	sort.SliceStable(claimed, func(i, j int) bool {
		return claimed[i].ClaimValue() > claimed[j].ClaimValue()
	})
	ss.Hand = append(ss.Hand, claimed...)

	t.Claims++
	t.HasDrawn = true
	t.Selection = nil
	t.Pinned = -1
	t.LastMover = seat
	return true
}

// EndTurn 显式结束回合
// 凑十玩法的回合结束是玩家动作，不随手牌打空自动发生
// 清掉所有回合内状态并交换行动权
func (t *TopTen) EndTurn(seat Seat) bool {
	if t.State.Turn != seat {
		return false
	}
	t.HasDrawn = false
	t.Claims = 0
	t.Selection = nil
	t.Pinned = -1
	t.State.advanceTurn()
	return true
}

// IsTerminal 是否达到终局计分条件：摸牌堆耗尽且至少一方手牌非空
func (t *TopTen) IsTerminal() bool {
	gs := t.State
	if len(gs.Stock) != 0 {
		return false
	}
	return len(gs.Hand(SeatSouth)) > 0 || len(gs.Hand(SeatNorth)) > 0
}
