package duel

import (
	"math/rand/v2"
	"strings"
)

// Suit 牌的花色
type Suit uint8

const (
	SuitNone    Suit = iota
	SuitSpade        // 黑桃
	SuitHeart        // 红桃
	SuitDiamond      // 方块
	SuitClub         // 梅花
	SuitJoker        // 王
)

// Symbol 返回花色的符号形式（线上文档的规范写法）
func (s Suit) Symbol() string {
	switch s {
	case SuitSpade:
		return "♠"
	case SuitHeart:
		return "♥"
	case SuitDiamond:
		return "♦"
	case SuitClub:
		return "♣"
	case SuitJoker:
		return "joker"
	}
	return ""
}

// Name 返回花色的英文小写名称（旧文档中出现的另一种写法）
func (s Suit) Name() string {
	switch s {
	case SuitSpade:
		return "spades"
	case SuitHeart:
		return "hearts"
	case SuitDiamond:
		return "diamonds"
	case SuitClub:
		return "clubs"
	case SuitJoker:
		return "joker"
	}
	return ""
}

// ParseSuit 解析花色
// 符号形式和英文名称（含单数形式）视为等价，两种写法都会出现在线上文档里
func ParseSuit(s string) Suit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "♠", "spades", "spade":
		return SuitSpade
	case "♥", "hearts", "heart":
		return SuitHeart
	case "♦", "diamonds", "diamond":
		return SuitDiamond
	case "♣", "clubs", "club":
		return SuitClub
	case "joker", "jokers":
		return SuitJoker
	}
	return SuitNone
}

// Value 牌的点数
type Value uint8

const (
	ValueNone Value = iota
	ValueA
	Value2
	Value3
	Value4
	Value5
	Value6
	Value7
	Value8
	Value9
	Value10
	ValueJ
	ValueQ
	ValueK
	ValueJoker
)

// String 返回点数的文本形式
func (v Value) String() string {
	switch v {
	case ValueA:
		return "A"
	case Value2, Value3, Value4, Value5, Value6, Value7, Value8, Value9:
		return string('0' + rune(v))
	case Value10:
		return "10"
	case ValueJ:
		return "J"
	case ValueQ:
		return "Q"
	case ValueK:
		return "K"
	case ValueJoker:
		return "Joker"
	}
	return ""
}

// ParseValue 解析点数
func ParseValue(s string) Value {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "1", "ACE":
		return ValueA
	case "2":
		return Value2
	case "3":
		return Value3
	case "4":
		return Value4
	case "5":
		return Value5
	case "6":
		return Value6
	case "7":
		return Value7
	case "8":
		return Value8
	case "9":
		return Value9
	case "10":
		return Value10
	case "J", "JACK":
		return ValueJ
	case "Q", "QUEEN":
		return ValueQ
	case "K", "KING":
		return ValueK
	case "JOKER":
		return ValueJoker
	}
	return ValueNone
}

// ClaimValue 返回凑十玩法中牌的数值
// A 算 1，2-10 按面值，J/Q/K/王 不参与该玩法，返回 0
func (v Value) ClaimValue() int {
	if v >= ValueA && v <= Value10 {
		return int(v)
	}
	return 0
}

// Card 代表一张扑克牌
// 值类型，相等性按 (花色, 点数) 判断而不是引用
type Card struct {
	Suit  Suit
	Value Value
}

// NewCard
func NewCard(suit Suit, value Value) Card {
	return Card{
		Suit:  suit,
		Value: value,
	}
}

// Equal 按 (花色, 点数) 判断两张牌是否相同
func (c Card) Equal(other Card) bool {
	return c.Suit == other.Suit && c.Value == other.Value
}

// ClaimValue 返回凑十玩法中这张牌的数值
func (c Card) ClaimValue() int {
	return c.Value.ClaimValue()
}

type Cards []Card

// Clone 复制一份牌的切片
func (cs Cards) Clone() Cards {
	if cs == nil {
		return nil
	}
	out := make(Cards, len(cs))
	copy(out, cs)
	return out
}

// Top 返回牌堆顶部的牌（最后一个元素）
func (cs Cards) Top() (Card, bool) {
	if len(cs) == 0 {
		return Card{}, false
	}
	return cs[len(cs)-1], true
}

// Contains 是否包含指定的牌（按值匹配）
func (cs Cards) Contains(card Card) bool {
	for _, c := range cs {
		if c.Equal(card) {
			return true
		}
	}
	return false
}

// Remove 按值匹配移除第一张相同的牌
// 返回移除后的切片和是否找到；找到重复牌时只移除一张
func (cs Cards) Remove(card Card) (Cards, bool) {
	for i, c := range cs {
		if c.Equal(card) {
			out := make(Cards, 0, len(cs)-1)
			out = append(out, cs[:i]...)
			out = append(out, cs[i+1:]...)
			return out, true
		}
	}
	return cs, false
}

// ClaimSum 凑十玩法中所有牌的数值之和
func (cs Cards) ClaimSum() int {
	sum := 0
	for _, c := range cs {
		sum += c.ClaimValue()
	}
	return sum
}

// Shuffle 洗牌，随机打乱牌的顺序
func (cs Cards) Shuffle() {
	rand.Shuffle(len(cs), func(i, j int) {
		cs[i], cs[j] = cs[j], cs[i]
	})
}

// NewDeck 生成一副 52 张的标准扑克牌（不含王）
func NewDeck() Cards {
	suits := []Suit{SuitSpade, SuitHeart, SuitDiamond, SuitClub}
	values := []Value{ValueA, Value2, Value3, Value4, Value5, Value6, Value7, Value8, Value9, Value10, ValueJ, ValueQ, ValueK}

	cards := make(Cards, 0, 52)
	for _, suit := range suits {
		for _, value := range values {
			cards = append(cards, NewCard(suit, value))
		}
	}
	return cards
}

// NewClaimDeck 生成凑十玩法用的 40 张牌（A-10，不含 J/Q/K/王）
func NewClaimDeck() Cards {
	suits := []Suit{SuitSpade, SuitHeart, SuitDiamond, SuitClub}

	cards := make(Cards, 0, 40)
	for _, suit := range suits {
		for v := ValueA; v <= Value10; v++ {
			cards = append(cards, NewCard(suit, v))
		}
	}
	return cards
}

// Deal 发牌
// 洗牌后给每个玩家发 count 张，返回每个玩家的手牌和剩余的牌堆
// count 为 0 时合法（凑十玩法开局不发牌）
func (cs Cards) Deal(players, count int) ([]Cards, Cards) {
	if players <= 0 {
		return nil, cs
	}

	shuffled := cs.Clone()
	shuffled.Shuffle()

	if count < 0 {
		count = 0
	}
	if players*count > len(shuffled) {
		count = len(shuffled) / players
	}

	hands := make([]Cards, players)
	for i := range players {
		hands[i] = make(Cards, count)
		copy(hands[i], shuffled[i*count:(i+1)*count])
	}
	return hands, shuffled[players*count:]
}
