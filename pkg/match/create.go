package match

import (
	"context"
	"fmt"
	"time"

	"github.com/play/duel/pkg/docstore"
	"github.com/play/duel/pkg/duel"
	"github.com/play/duel/pkg/wire"
)

// Identity 对局双方的身份，核心只认一个不透明的 UID
type Identity struct {
	UID  string
	Name string
}

const collection = "matches"

// 每方的起手牌数（疯狂八）
const eightsHandSize = 8

// Create 在文档存储里创建一份新的对局文档并返回文档 ID
//
// 疯狂八：52 张牌各发 8 张，翻一张开弃牌堆；凑十：40 张 A-10 不发牌，
// 弃牌堆从空开始。文档以 pending_acceptance 状态落档，由 host 先手。
func Create(ctx context.Context, store docstore.Store, host, guest Identity, opts ...Option) (string, error) {
	o := new(options)
	o.apply(opts...).setDefault()

	fields := map[string]any{
		"status":               string(wire.StatusPendingAcceptance),
		"players.player1.uid":  host.UID,
		"players.player1.name": host.Name,
		"players.player2.uid":  guest.UID,
		"players.player2.name": guest.Name,
		"turn":                 string(wire.RolePlayer1),
		"round":                0,
		"lastAction": wire.LastAction{
			Player:    wire.RolePlayer1,
			Action:    wire.ActionDeal,
			Timestamp: time.Now().UnixMilli(),
		},
	}

	switch o.variant {
	case VariantTopTen:
		deck := duel.NewClaimDeck()
		_, stock := deck.Deal(2, 0)
		fields["players.player1.hand"] = []wire.Card{}
		fields["players.player2.hand"] = []wire.Card{}
		fields["pile"] = wire.CardsFromDomain(stock)
		fields["discardPile"] = []wire.Card{}
	default:
		deck := duel.NewDeck()
		hands, stock := deck.Deal(2, eightsHandSize)
		// 翻一张开弃牌堆
		opening := stock[0]
		stock = stock[1:]
		fields["players.player1.hand"] = wire.CardsFromDomain(hands[0])
		fields["players.player2.hand"] = wire.CardsFromDomain(hands[1])
		fields["pile"] = wire.CardsFromDomain(stock)
		fields["discardPile"] = []wire.Card{wire.FromDomain(opening)}
		fields["currentCard"] = wire.FromDomain(opening)
	}

	id, err := store.CreateDocument(ctx, collection, fields)
	if err != nil {
		return "", fmt.Errorf("create match document failed: %w", err)
	}
	return id, nil
}
