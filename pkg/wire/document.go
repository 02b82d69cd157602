// wire 定义两台客户端都必须遵守的共享文档结构（线上契约）
// 以及入站边界上的校验解码：解码要么得到一份类型化的快照，要么返回
// ErrMalformedDocument，核心逻辑不再猜字段形状
package wire

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/play/duel/pkg/duel"
)

var (
	ErrMalformedDocument = errors.New("malformed document")
)

// Status 对局文档的状态
type Status string

const (
	StatusWaiting           Status = "waiting"
	StatusPendingAcceptance Status = "pending_acceptance"
	StatusStarted           Status = "started"
	StatusInProgress        Status = "in-progress"
	StatusFinished          Status = "finished"
	StatusCancelled         Status = "cancelled"
	StatusDeleted           Status = "deleted"
)

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

// Role 一方在共享文档里解析出的身份
// 和本地视角的 south/north 是两回事：south 永远是本机玩家，而
// player1/player2 属于文档，必须在每次快照时按 UID 重新解析
type Role string

const (
	RoleNone    Role = ""
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Other 返回对面的角色
func (r Role) Other() Role {
	switch r {
	case RolePlayer1:
		return RolePlayer2
	case RolePlayer2:
		return RolePlayer1
	}
	return RoleNone
}

// 文档里 lastAction 的动作标签
const (
	ActionPlay        = "play"
	ActionDraw        = "draw"
	ActionClaim       = "claim"
	ActionStage       = "stage"
	ActionEatTempDeck = "eat_temp_deck"
	ActionEndTurn     = "end_turn"
	ActionDeal        = "deal"
	ActionCancel      = "cancel"
)

// Card 线上形式的一张牌
// 花色可能是符号也可能是英文名称，点数可能是字符串也可能是数字，
// 两台客户端的历史版本都写过这些形式，解码时必须都接受
type Card struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// UnmarshalJSON 宽容解码：value 为数字时按数字转字符串
func (c *Card) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return ErrMalformedDocument
	}
	c.Suit = r.Get("suit").String()
	c.Value = cast.ToString(r.Get("value").Value())
	return nil
}

// Domain 转成领域层的牌，未知花色/点数落到零值
func (c Card) Domain() duel.Card {
	return duel.NewCard(duel.ParseSuit(c.Suit), duel.ParseValue(c.Value))
}

// FromDomain 领域层的牌转成线上形式，统一写符号形式
func FromDomain(c duel.Card) Card {
	return Card{Suit: c.Suit.Symbol(), Value: c.Value.String()}
}

// CardsToDomain
func CardsToDomain(cs []Card) duel.Cards {
	if len(cs) == 0 {
		return nil
	}
	out := make(duel.Cards, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Domain())
	}
	return out
}

// CardsFromDomain
func CardsFromDomain(cs duel.Cards) []Card {
	out := make([]Card, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromDomain(c))
	}
	return out
}

// PlayerSlot 文档中单个角色拥有的子字段
// 字段归属纪律：每一方只写自己角色名下的这些字段
type PlayerSlot struct {
	Name           string `json:"name"`
	UID            string `json:"uid"`
	Hand           []Card `json:"hand"`
	TempDeck       []Card `json:"tempDeck,omitempty"`
	TempDeckSum    int    `json:"tempDeckSum,omitempty"`
	Deck           []Card `json:"deck,omitempty"`
	LastCardPlayed *Card  `json:"lastCardPlayed,omitempty"`
}

// LastAction 随每次写入一起记录的动作标签
// 对手动作推断依赖它做确认，但永远不参与规则合法性判断
type LastAction struct {
	Player    Role   `json:"player"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// Points 终局计分
type Points struct {
	Player1 duel.ScoreBreakdown `json:"player1"`
	Player2 duel.ScoreBreakdown `json:"player2"`
}

// Players 文档中的双方
type Players struct {
	Player1 PlayerSlot `json:"player1"`
	Player2 PlayerSlot `json:"player2"`
}

// Document 共享对局文档的完整形状
type Document struct {
	Status             Status      `json:"status"`
	Players            Players     `json:"players"`
	Pile               []Card      `json:"pile"`
	DiscardPile        []Card      `json:"discardPile"`
	CurrentCard        *Card       `json:"currentCard"`
	Turn               Role        `json:"turn"`
	Round              int         `json:"round,omitempty"`
	LastAction         *LastAction `json:"lastAction,omitempty"`
	LastMover          Role        `json:"lastMover,omitempty"`
	Points             *Points     `json:"points,omitempty"`
	CancelledBy        Role        `json:"cancelledBy,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
}

// Decode 校验并解码一份文档快照
// JSON 本身坏掉返回 ErrMalformedDocument；字段缺失不算错，落到零值
func Decode(data []byte) (*Document, error) {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return nil, ErrMalformedDocument
	}

	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, ErrMalformedDocument
	}
	return &d, nil
}

// Encode 序列化文档
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Player 返回指定角色的子字段，角色非法时返回 nil
func (d *Document) Player(r Role) *PlayerSlot {
	switch r {
	case RolePlayer1:
		return &d.Players.Player1
	case RolePlayer2:
		return &d.Players.Player2
	}
	return nil
}

// ResolveRole 按 UID 解析本机是哪个角色
// 两边都不匹配时返回 RoleNone：调用方必须保持旧的角色不变（fail open），
// 不能据此猜角色，更不能把对局当成已取消
func (d *Document) ResolveRole(uid string) Role {
	if uid == "" {
		return RoleNone
	}
	if d.Players.Player1.UID == uid {
		return RolePlayer1
	}
	if d.Players.Player2.UID == uid {
		return RolePlayer2
	}
	return RoleNone
}

// ToState 以 self 的视角把远端文档重建为本地对局状态
// south 永远是 self 对应的角色；self 为 RoleNone 时返回 nil
func (d *Document) ToState(self Role) *duel.GameState {
	slot := d.Player(self)
	if slot == nil {
		return nil
	}
	opp := d.Player(self.Other())

	gs := duel.InitGame()
	south := gs.Seat(duel.SeatSouth)
	south.Hand = CardsToDomain(slot.Hand)
	south.TempDeck = CardsToDomain(slot.TempDeck)
	south.TempDeckSum = slot.TempDeckSum
	south.Deck = CardsToDomain(slot.Deck)

	north := gs.Seat(duel.SeatNorth)
	north.Hand = CardsToDomain(opp.Hand)
	north.TempDeck = CardsToDomain(opp.TempDeck)
	north.TempDeckSum = opp.TempDeckSum
	north.Deck = CardsToDomain(opp.Deck)

	gs.Stock = CardsToDomain(d.Pile)
	gs.Discard = CardsToDomain(d.DiscardPile)

	if d.Turn == self {
		gs.Turn = duel.SeatSouth
	} else {
		gs.Turn = duel.SeatNorth
	}
	if d.CurrentCard != nil {
		gs.CurrentSuit = duel.ParseSuit(d.CurrentCard.Suit)
	}
	return gs
}
