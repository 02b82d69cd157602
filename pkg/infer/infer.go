// infer 通过对比前后两次远端快照推断对手刚做了什么
//
// 共享文档没有消息/事件通道，对手的动作只能从字段差分里还原。推断结果
// 只交给展示层决定播什么动画，绝不参与规则合法性判断。
package infer

import (
	"github.com/play/duel/pkg/duel"
	"github.com/play/duel/pkg/wire"
)

// Kind 推断出的对手动作类别
type Kind uint8

const (
	KindNone              Kind = iota // 无法确认，不产生事件
	KindStagedFromHand                // 从自己手牌放入暂存堆
	KindStagedFromDiscard             // 从公共弃牌堆收入暂存堆
	KindBanked                        // 把暂存堆收走
	KindPlayed                        // 打出一张牌
	KindDrew                          // 摸了一张牌
)

// String
func (k Kind) String() string {
	switch k {
	case KindStagedFromHand:
		return "staged_from_hand"
	case KindStagedFromDiscard:
		return "staged_from_discard"
	case KindBanked:
		return "banked"
	case KindPlayed:
		return "played"
	case KindDrew:
		return "drew"
	}
	return "none"
}

// Action 一次推断出的对手动作
type Action struct {
	Kind  Kind
	Cards duel.Cards // 涉及的牌（入暂存堆/被收走的牌）
	Card  *duel.Card // 打出或摸到的那张牌
}

// Classify 对比前后两次快照，按固定优先级推断对手的动作
//
// 优先级：暂存堆变长 > 收走暂存堆（带 eat_temp_deck 标签）> 出牌
// （手牌变短且弃牌堆变长且带 play 标签）> 摸牌（弃牌堆变长且无 play
// 标签）。任何分类都要求 lastAction.player 恰好是对手角色，否则视为
// 歧义差分，保守地不产生事件。
//
// prev 和 cur 必须是调用方跨回调保存下来的快照，不要每次重建。
func Classify(prev, cur *wire.Document, opponent wire.Role) Action {
	if prev == nil || cur == nil || opponent == wire.RoleNone {
		return Action{}
	}
	// 没有对手署名的动作标签就不下结论
	if cur.LastAction == nil || cur.LastAction.Player != opponent {
		return Action{}
	}

	prevOpp := prev.Player(opponent)
	curOpp := cur.Player(opponent)
	if prevOpp == nil || curOpp == nil {
		return Action{}
	}

	tag := cur.LastAction.Action

	// 1. 对手的暂存堆变长：再用差分判断牌来自手牌还是公共弃牌堆
	if len(curOpp.TempDeck) > len(prevOpp.TempDeck) {
		added := addedCards(prevOpp.TempDeck, curOpp.TempDeck)
		removedFromDiscard := addedCards(cur.DiscardPile, prev.DiscardPile)
		if containsAll(removedFromDiscard, added) {
			return Action{Kind: KindStagedFromDiscard, Cards: added}
		}
		return Action{Kind: KindStagedFromHand, Cards: added}
	}

	// 2. 对手收走了暂存堆
	if len(curOpp.Deck) > len(prevOpp.Deck) && tag == wire.ActionEatTempDeck {
		return Action{Kind: KindBanked, Cards: addedCards(prevOpp.Deck, curOpp.Deck)}
	}

	// 3. 对手出了一张牌：手牌变短、弃牌堆变长、带 play 标签
	if len(curOpp.Hand) < len(prevOpp.Hand) &&
		len(cur.DiscardPile) > len(prev.DiscardPile) &&
		tag == wire.ActionPlay {
		if top, ok := wire.CardsToDomain(cur.DiscardPile).Top(); ok {
			return Action{Kind: KindPlayed, Card: &top}
		}
		return Action{}
	}

	// 4. 弃牌堆变长但没有 play 标签：对手摸了一张牌
	if len(cur.DiscardPile) > len(prev.DiscardPile) && tag != wire.ActionPlay {
		if top, ok := wire.CardsToDomain(cur.DiscardPile).Top(); ok {
			return Action{Kind: KindDrew, Card: &top}
		}
	}

	return Action{}
}

// addedCards 返回 cur 相对 prev 多出来的牌（多重集合差）
func addedCards(prev, cur []wire.Card) duel.Cards {
	counts := map[duel.Card]int{}
	for _, c := range prev {
		counts[c.Domain()]++
	}

	var added duel.Cards
	for _, c := range cur {
		dc := c.Domain()
		if counts[dc] > 0 {
			counts[dc]--
			continue
		}
		added = append(added, dc)
	}
	return added
}

// containsAll super 是否按多重集合包含 sub 的全部牌
func containsAll(super, sub duel.Cards) bool {
	if len(sub) == 0 {
		return false
	}
	counts := map[duel.Card]int{}
	for _, c := range super {
		counts[c]++
	}
	for _, c := range sub {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}
