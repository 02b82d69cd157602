package duel

import (
	"testing"
)

// TestParseSuit 测试花色解析，符号和英文名称两种写法必须等价
func TestParseSuit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Suit
	}{
		{"黑桃符号", "♠", SuitSpade},
		{"黑桃英文", "spades", SuitSpade},
		{"黑桃英文单数", "spade", SuitSpade},
		{"红桃符号", "♥", SuitHeart},
		{"红桃英文", "hearts", SuitHeart},
		{"方块符号", "♦", SuitDiamond},
		{"方块英文", "diamonds", SuitDiamond},
		{"梅花符号", "♣", SuitClub},
		{"梅花英文", "clubs", SuitClub},
		{"大写英文", "SPADES", SuitSpade},
		{"带空格", " hearts ", SuitHeart},
		{"王", "joker", SuitJoker},
		{"未知", "stars", SuitNone},
		{"空串", "", SuitNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSuit(tt.input); got != tt.expected {
				t.Errorf("ParseSuit(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// TestParseSuitRoundTrip 两种写法解析后必须落到同一个花色
func TestParseSuitRoundTrip(t *testing.T) {
	for _, s := range []Suit{SuitSpade, SuitHeart, SuitDiamond, SuitClub} {
		if got := ParseSuit(s.Symbol()); got != s {
			t.Errorf("ParseSuit(Symbol) = %v, want %v", got, s)
		}
		if got := ParseSuit(s.Name()); got != s {
			t.Errorf("ParseSuit(Name) = %v, want %v", got, s)
		}
	}
}

// TestParseValue 测试点数解析
func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected Value
	}{
		{"A", ValueA},
		{"a", ValueA},
		{"1", ValueA},
		{"2", Value2},
		{"8", Value8},
		{"10", Value10},
		{"J", ValueJ},
		{"Q", ValueQ},
		{"K", ValueK},
		{"Joker", ValueJoker},
		{"x", ValueNone},
	}

	for _, tt := range tests {
		if got := ParseValue(tt.input); got != tt.expected {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

// TestClaimValue A 算 1，2-10 按面值，花牌和王不计
func TestClaimValue(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected int
	}{
		{"A算1", ValueA, 1},
		{"2", Value2, 2},
		{"9", Value9, 9},
		{"10", Value10, 10},
		{"J不计", ValueJ, 0},
		{"Q不计", ValueQ, 0},
		{"K不计", ValueK, 0},
		{"王不计", ValueJoker, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.ClaimValue(); got != tt.expected {
				t.Errorf("ClaimValue() = %d, want %d", got, tt.expected)
			}
		})
	}
}

// TestCardEqual 相等性按 (花色, 点数) 而不是引用
func TestCardEqual(t *testing.T) {
	a := NewCard(SuitSpade, Value8)
	b := NewCard(SuitSpade, Value8)
	c := NewCard(SuitHeart, Value8)

	if !a.Equal(b) {
		t.Error("same suit and value should be equal")
	}
	if a.Equal(c) {
		t.Error("different suit should not be equal")
	}
}

// TestCardsRemove 按值匹配移除，重复牌只移除一张
func TestCardsRemove(t *testing.T) {
	cs := Cards{
		NewCard(SuitSpade, Value5),
		NewCard(SuitHeart, Value5),
		NewCard(SuitSpade, Value5),
	}

	out, ok := cs.Remove(NewCard(SuitSpade, Value5))
	if !ok {
		t.Fatal("should find the card")
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 cards left, got %d", len(out))
	}
	// 剩下的应该是 红桃5 和第二张 黑桃5
	if !out.Contains(NewCard(SuitSpade, Value5)) {
		t.Error("the duplicate spade 5 should remain")
	}

	_, ok = out.Remove(NewCard(SuitClub, ValueK))
	if ok {
		t.Error("should not find a card that is not there")
	}
}

// TestNewDeck 标准牌 52 张，每花色 13 张
func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != 52 {
		t.Fatalf("expected 52 cards, got %d", len(deck))
	}

	counts := map[Suit]int{}
	for _, c := range deck {
		counts[c.Suit]++
	}
	for _, s := range []Suit{SuitSpade, SuitHeart, SuitDiamond, SuitClub} {
		if counts[s] != 13 {
			t.Errorf("suit %v expected 13 cards, got %d", s, counts[s])
		}
	}
}

// TestNewClaimDeck 凑十玩法 40 张，不含 J/Q/K/王
func TestNewClaimDeck(t *testing.T) {
	deck := NewClaimDeck()
	if len(deck) != 40 {
		t.Fatalf("expected 40 cards, got %d", len(deck))
	}
	for _, c := range deck {
		if c.Value > Value10 {
			t.Errorf("claim deck should not contain %v", c.Value)
		}
	}
}

// TestDeal 发牌后手牌加剩余牌堆必须守恒
func TestDeal(t *testing.T) {
	deck := NewDeck()
	hands, stock := deck.Deal(2, 8)

	if len(hands) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(hands))
	}
	for i, h := range hands {
		if len(h) != 8 {
			t.Errorf("hand %d expected 8 cards, got %d", i, len(h))
		}
	}
	if len(stock) != 52-16 {
		t.Errorf("expected %d cards in stock, got %d", 52-16, len(stock))
	}

	// 守恒检查
	var all Cards
	all = append(all, hands[0]...)
	all = append(all, hands[1]...)
	all = append(all, stock...)
	if !sameMultiset(t, deck, all) {
		t.Error("deal must conserve the deck")
	}
}

// TestDealZeroCount 发 0 张是合法的（凑十玩法开局不发牌）
func TestDealZeroCount(t *testing.T) {
	deck := NewClaimDeck()
	hands, stock := deck.Deal(2, 0)
	if len(hands[0]) != 0 || len(hands[1]) != 0 {
		t.Error("hands should be empty")
	}
	if len(stock) != 40 {
		t.Errorf("expected all 40 cards in stock, got %d", len(stock))
	}
}

// sameMultiset 判断两组牌是否为同一个多重集合
func sameMultiset(t *testing.T, a, b Cards) bool {
	t.Helper()
	if len(a) != len(b) {
		return false
	}
	counts := map[Card]int{}
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}
