package duel

import "testing"

func TestStageFromHand(t *testing.T) {
	gs := InitGame()
	ss := gs.Seat(SeatSouth)
	ss.Hand = Cards{NewCard(SuitSpade, Value7), NewCard(SuitHeart, Value3)}

	if !gs.StageFromHand(SeatSouth, 1) {
		t.Fatal("合法的手牌索引应当能移入暂存堆")
	}
	if len(ss.Hand) != 1 || len(ss.TempDeck) != 1 {
		t.Fatalf("手牌 %d 张 暂存堆 %d 张", len(ss.Hand), len(ss.TempDeck))
	}
	if ss.TempDeckSum != 3 {
		t.Fatalf("暂存堆点数 = %d, 期望 3", ss.TempDeckSum)
	}

	if gs.StageFromHand(SeatSouth, 5) {
		t.Fatal("越界索引应当是无操作")
	}
}

func TestStageFromDiscard(t *testing.T) {
	gs := InitGame()
	gs.Discard = Cards{NewCard(SuitClub, Value4), NewCard(SuitDiamond, Value10)}

	if !gs.StageFromDiscard(SeatSouth, 0) {
		t.Fatal("应当能从弃牌堆收牌")
	}
	ss := gs.Seat(SeatSouth)
	if len(gs.Discard) != 1 || !gs.Discard[0].Equal(NewCard(SuitDiamond, Value10)) {
		t.Fatalf("弃牌堆剩余不对: %v", gs.Discard)
	}
	if ss.TempDeckSum != 4 {
		t.Fatalf("暂存堆点数 = %d, 期望 4", ss.TempDeckSum)
	}
}

func TestBankStaging(t *testing.T) {
	gs := InitGame()
	ss := gs.Seat(SeatSouth)

	if gs.BankStaging(SeatSouth) {
		t.Fatal("空暂存堆不能收走")
	}

	ss.TempDeck = Cards{NewCard(SuitSpade, ValueA), NewCard(SuitHeart, Value9)}
	ss.TempDeckSum = ss.TempDeck.ClaimSum()

	if !gs.BankStaging(SeatSouth) {
		t.Fatal("非空暂存堆应当能收走")
	}
	if len(ss.TempDeck) != 0 || ss.TempDeckSum != 0 {
		t.Fatal("收走后暂存堆应当清空")
	}
	if len(ss.Deck) != 2 {
		t.Fatalf("收牌堆 %d 张, 期望 2", len(ss.Deck))
	}
}

// 搬运操作不会让牌凭空产生或消失
func TestStagingConservation(t *testing.T) {
	gs := InitGame()
	ss := gs.Seat(SeatSouth)
	ss.Hand = Cards{NewCard(SuitSpade, Value2), NewCard(SuitClub, Value8)}
	gs.Discard = Cards{NewCard(SuitHeart, Value6)}
	before := gs.CardCount()

	gs.StageFromHand(SeatSouth, 0)
	gs.StageFromDiscard(SeatSouth, 0)
	gs.BankStaging(SeatSouth)

	if got := gs.CardCount(); got != before {
		t.Fatalf("总牌数 = %d, 期望 %d", got, before)
	}
}
