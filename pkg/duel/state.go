package duel

// Seat 本地视角的座位
// south 永远代表本机玩家，north 代表对手
// 与远端文档的 player1/player2 的映射由同步层按身份解析，这里不关心
type Seat int8

const (
	SeatNone  Seat = iota // 未指定（用于 Winner 等可为空的字段）
	SeatSouth             // 本机玩家
	SeatNorth             // 对手
)

// Other 返回对面的座位
func (s Seat) Other() Seat {
	switch s {
	case SeatSouth:
		return SeatNorth
	case SeatNorth:
		return SeatSouth
	}
	return SeatNone
}

// String
func (s Seat) String() string {
	switch s {
	case SeatSouth:
		return "south"
	case SeatNorth:
		return "north"
	}
	return "none"
}

// SeatState 单个座位的牌堆
type SeatState struct {
	Hand        Cards // 手牌
	TempDeck    Cards // 暂存堆，收走前的中间堆
	TempDeckSum int   // 暂存堆的数值和（缓存值）
	Deck        Cards // 已收走的牌，不再参与对局
}

// GameState 一局对局的权威内存快照
// 只允许通过规则引擎的变换方法修改，任何地方都不应该直接改字段
type GameState struct {
	Seats       [2]SeatState // 按 SeatSouth/SeatNorth 索引
	Stock       Cards        // 摸牌堆，从头部摸
	Discard     Cards        // 弃牌堆，尾部为堆顶
	Turn        Seat         // 当前行动方
	CurrentSuit Suit         // 新出的牌需要跟的花色，可被 8 改写
	Winner      Seat         // 胜者，终局前为 SeatNone
	ChooseSuit  bool         // 打出 8 之后、花色未声明前为 true
}

// InitGame 创建一个空的对局状态，不发牌
// 发牌由调用方通过 Deal 驱动，不属于引擎本身
func InitGame() *GameState {
	return &GameState{
		Turn: SeatSouth,
	}
}

// Seat 返回指定座位的牌堆，座位非法时返回 nil
func (gs *GameState) Seat(seat Seat) *SeatState {
	if seat != SeatSouth && seat != SeatNorth {
		return nil
	}
	return &gs.Seats[seat-1]
}

// Hand 返回指定座位的手牌
func (gs *GameState) Hand(seat Seat) Cards {
	if ss := gs.Seat(seat); ss != nil {
		return ss.Hand
	}
	return nil
}

// TopDiscard 返回弃牌堆顶的牌，空堆时返回 nil
func (gs *GameState) TopDiscard() *Card {
	if top, ok := gs.Discard.Top(); ok {
		return &top
	}
	return nil
}

// IsFinished 对局是否已经分出胜负
func (gs *GameState) IsFinished() bool {
	return gs.Winner != SeatNone
}

// advanceTurn 交换行动权；已分出胜负后不再推进
func (gs *GameState) advanceTurn() {
	if gs.IsFinished() {
		return
	}
	gs.Turn = gs.Turn.Other()
}

// AllCards 返回所有牌堆和手牌中牌的合集
// 用于校验守恒：任何合法操作序列都不会增减这个合集
func (gs *GameState) AllCards() Cards {
	var all Cards
	for i := range gs.Seats {
		all = append(all, gs.Seats[i].Hand...)
		all = append(all, gs.Seats[i].TempDeck...)
		all = append(all, gs.Seats[i].Deck...)
	}
	all = append(all, gs.Stock...)
	all = append(all, gs.Discard...)
	return all
}

// CardCount 场上所有牌的总数
func (gs *GameState) CardCount() int {
	count := len(gs.Stock) + len(gs.Discard)
	for i := range gs.Seats {
		count += len(gs.Seats[i].Hand) + len(gs.Seats[i].TempDeck) + len(gs.Seats[i].Deck)
	}
	return count
}
