// match 实现两台客户端通过一份共享文档对齐对局的同步协议
//
// 每台客户端持有一份乐观的本地对局状态和一个远端监听。本地变更先落本地
// （保证手感），防抖之后把自己名下的权威字段写回文档；远端快照到达时
// （包括自己写入的回声）把文档重建为本地状态。没有消息通道，对手的动作
// 靠前后快照差分推断（见 infer 包）。
package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/play/duel/pkg/docstore"
	"github.com/play/duel/pkg/duel"
	"github.com/play/duel/pkg/infer"
	"github.com/play/duel/pkg/wire"
	"github.com/play/duel/pkg/worker"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrSessionClosed = errors.New("session is closed")
)

// Handlers 会话向外的全部信号
// 核心只暴露状态变化和推断出的对手动作，展示层消费它们决定播什么；
// 回调在会话自己的 goroutine 上执行，里面不要做重活
type Handlers struct {
	OnState  func(*duel.GameState)             // 远端快照吸收后的最新状态
	OnAction func(infer.Action)                // 推断出的对手动作，只用于展示
	OnEnded  func(reason string, by wire.Role) // 对局结束通知（含取消/删除）
}

// Session 一局对局的同步上下文
//
// 曾经散落的包级标志（回声防护、本回合是否摸过牌、上一次快照）全部收进
// 这个结构体，生命周期是显式的 Open/Close，同一个进程里可以并行模拟
// 多个会话
type Session struct {
	store docstore.Store
	docID string
	uid   string

	mu         sync.Mutex
	role       wire.Role       // 每次快照都按 UID 重新解析，不当常量缓存
	state      *duel.GameState // 乐观的本地状态
	topten     *duel.TopTen    // 凑十玩法的回合状态，其他玩法为 nil
	prev       *wire.Document  // 上一次远端快照，跨回调保存
	writing    bool            // 回声防护：true 期间入站快照绝不触发出站写
	lastTag    string          // 最近一次本地动作的标签，随写入落到 lastAction
	lastPlayed *duel.Card      // 最近打出的牌
	ended      bool
	closed     bool

	flushTimer *time.Timer
	sub        *docstore.Subscription
	pool       *worker.Pool // 限并发 1，保证本会话的写按序发出
	h          Handlers
	o          *options
}

// Open 打开一局对局的同步会话
// uid 两边都不匹配时不报错也不猜角色：会话以无角色状态打开（只读），
// 等后续快照解析出角色为止
func Open(ctx context.Context, store docstore.Store, docID, uid string, h Handlers, opts ...Option) (*Session, error) {
	o := new(options)
	o.apply(opts...).setDefault()

	snap, err := store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, ErrMatchNotFound
	}

	doc, err := wire.Decode(snap)
	if err != nil {
		return nil, err
	}

	s := &Session{
		store: store,
		docID: docID,
		uid:   uid,
		role:  doc.ResolveRole(uid),
		prev:  doc,
		pool:  worker.NewPool(1),
		h:     h,
		o:     o,
	}

	if s.role != wire.RoleNone {
		s.state = doc.ToState(s.role)
	} else {
		s.state = duel.InitGame()
	}
	if o.variant == VariantTopTen {
		s.topten = duel.NewTopTen(s.state)
	}

	sub, err := store.Subscribe(ctx, docID, s.handleSnapshot)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	log.Trace().Str("doc_id", docID).Str("role", string(s.role)).Msg("match session opened")
	return s, nil
}

// Role 当前解析出的角色
func (s *Session) Role() wire.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// State 当前的本地对局状态
// 返回的是会话内部的状态，展示层只读
func (s *Session) State() *duel.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TopTen 凑十玩法的回合状态，其他玩法返回 nil
func (s *Session) TopTen() *duel.TopTen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topten
}

// ---- 本地意图（经规则引擎校验后乐观生效，再防抖写回） ----

// PlayCard 打出手牌中 handIndex 位置的牌（疯狂八）
// 不在自己回合、或 CanPlay 不通过时是无操作
func (s *Session) PlayCard(handIndex int, chosenSuit duel.Suit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || s.state.Turn != duel.SeatSouth {
		return false
	}

	hand := s.state.Hand(duel.SeatSouth)
	if handIndex < 0 || handIndex >= len(hand) {
		return false
	}
	card := hand[handIndex]
	if !duel.CanPlay(card, s.state.TopDiscard(), s.state.CurrentSuit) {
		return false
	}

	if !s.state.PlayCard(duel.SeatSouth, handIndex, chosenSuit, false) {
		return false
	}
	s.lastPlayed = &card
	s.lastTag = wire.ActionPlay
	s.scheduleFlush()
	return true
}

// ResolveSuit 声明 8 生效后的花色
func (s *Session) ResolveSuit(suit duel.Suit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || !s.state.ResolveSuit(suit) {
		return false
	}
	s.lastTag = wire.ActionPlay
	s.scheduleFlush()
	return true
}

// Draw 摸一张牌
// 凑十玩法走 TopTen.Draw（摸到 10 直接进手牌），其他玩法走普通摸牌
func (s *Session) Draw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || s.state.Turn != duel.SeatSouth {
		return false
	}

	ok := false
	if s.topten != nil {
		ok = s.topten.Draw(duel.SeatSouth)
	} else {
		ok = s.state.DrawCard(duel.SeatSouth)
	}
	if !ok {
		return false
	}
	s.lastTag = wire.ActionDraw
	s.scheduleFlush()
	return true
}

// ToggleSelect 选中/取消选中弃牌堆中的一张牌（凑十）
// 纯本地状态，不触发写入
func (s *Session) ToggleSelect(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topten == nil || s.ended || s.closed {
		return false
	}
	return s.topten.ToggleSelect(index)
}

// Claim 结算当前选区（凑十）
func (s *Session) Claim(includeOpponentTop bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topten == nil || s.ended || s.closed {
		return false
	}
	if !s.topten.ResolveClaim(duel.SeatSouth, includeOpponentTop) {
		return false
	}
	s.lastTag = wire.ActionClaim
	s.scheduleFlush()
	return true
}

// EndTurn 显式结束自己的回合（凑十）
func (s *Session) EndTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topten == nil || s.ended || s.closed {
		return false
	}
	if !s.topten.EndTurn(duel.SeatSouth) {
		return false
	}
	s.lastTag = wire.ActionEndTurn
	s.scheduleFlush()
	return true
}

// StageFromHand 把手牌中的一张移入自己的暂存堆
func (s *Session) StageFromHand(handIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || !s.state.StageFromHand(duel.SeatSouth, handIndex) {
		return false
	}
	s.lastTag = wire.ActionStage
	s.scheduleFlush()
	return true
}

// StageFromDiscard 把弃牌堆中的一张收入自己的暂存堆
func (s *Session) StageFromDiscard(discardIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || !s.state.StageFromDiscard(duel.SeatSouth, discardIndex) {
		return false
	}
	s.lastTag = wire.ActionStage
	s.scheduleFlush()
	return true
}

// BankStaging 把暂存堆整体收走
func (s *Session) BankStaging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.closed || !s.state.BankStaging(duel.SeatSouth) {
		return false
	}
	s.lastTag = wire.ActionEatTempDeck
	s.scheduleFlush()
	return true
}

// Accept 接受对局邀请（pending_acceptance → started）
func (s *Session) Accept(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	cur := wire.StatusWaiting
	if s.prev != nil {
		cur = Normalize(s.prev.Status)
	}
	s.mu.Unlock()

	if !CanTransition(cur, wire.StatusStarted) {
		return nil
	}
	return s.writeNow(ctx, map[string]any{
		"status": string(wire.StatusStarted),
	})
}

// Cancel 取消对局
// 先把终态和取消原因落档（立即写，不走防抖），再等一个宽限期删掉文档，
// 给对端的监听留出观察到状态变化的时间
func (s *Session) Cancel(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	role := s.role
	alreadyEnded := s.ended
	s.ended = true
	onEnded := s.h.OnEnded
	s.mu.Unlock()

	if alreadyEnded {
		return nil
	}

	err := s.writeNow(ctx, map[string]any{
		"status":             string(wire.StatusCancelled),
		"cancelledBy":        string(role),
		"cancellationReason": reason,
		"lastAction": wire.LastAction{
			Player:    role,
			Action:    wire.ActionCancel,
			Timestamp: time.Now().UnixMilli(),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("doc_id", s.docID).Msg("failed to write cancellation")
	}

	time.AfterFunc(s.o.cancelGrace, func() {
		if derr := s.store.DeleteDocument(context.Background(), s.docID); derr != nil {
			log.Error().Err(derr).Str("doc_id", s.docID).Msg("failed to delete cancelled match")
		}
	})

	if onEnded != nil {
		onEnded(reason, role)
	}
	return err
}

// Close 关闭会话，停掉监听和待发的写入
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	log.Trace().Str("doc_id", s.docID).Msg("match session closed")
}

// ---- 本地到远端：防抖写回 ----

// scheduleFlush 把紧挨着的多次本地变更合并成一次写入
// 回声防护从这里就开始拉起：乐观窗口内的入站快照只吸收不反应
// 调用方必须持有 s.mu
func (s *Session) scheduleFlush() {
	s.writing = true
	if s.flushTimer != nil {
		s.flushTimer.Reset(s.o.debounce)
		return
	}
	s.flushTimer = time.AfterFunc(s.o.debounce, func() {
		_, err := s.pool.Do(s.flush)
		if err != nil {
			log.Error().Err(err).Str("doc_id", s.docID).Msg("flush pool rejected job")
		}
	})
}

// flush 把本地状态序列化成自己名下的权威字段写回文档
//
// 写之前先重新拉一次当前文档：角色按 UID 重新解析，状态迁移以取回的
// 文档为准；对手名下的子字段从不点名，局部更新的语义保证不会覆盖它们。
// 注意取和写之间的窗口不是事务——对端恰好落在中间的写会被悄悄覆盖
// （last write wins）。这是设计接受的弱点，真正防竞争的是回合纪律。
func (s *Session) flush() {
	s.mu.Lock()
	s.flushTimer = nil
	if s.closed || s.lastTag == "" {
		s.mu.Unlock()
		s.clearGuardLater()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := s.store.GetDocument(ctx, s.docID)
	if err != nil {
		// 瞬时 I/O 故障：只记日志，乐观状态保留，下一次写入会重试同步
		log.Error().Err(err).Str("doc_id", s.docID).Msg("flush: failed to re-fetch document")
		s.clearGuardLater()
		return
	}
	if !snap.Exists() {
		// 文档已经没了，交给订阅回调按隐式取消处理
		s.clearGuardLater()
		return
	}
	doc, err := wire.Decode(snap)
	if err != nil {
		log.Warn().Err(err).Str("doc_id", s.docID).Msg("flush: remote document malformed")
		s.clearGuardLater()
		return
	}

	s.mu.Lock()
	if doc.Status.IsTerminal() {
		// 对局在防抖窗口里被对端终结了（比如取消）：这次写整体作废，
		// 绝不把终态文档改写回对局中
		s.lastTag = ""
		s.prev = doc
		s.mu.Unlock()
		log.Debug().Str("doc_id", s.docID).Str("status", string(doc.Status)).Msg("flush: match already terminal, dropping write")
		s.clearGuardLater()
		return
	}
	if r := doc.ResolveRole(s.uid); r != wire.RoleNone {
		s.role = r
	}
	if s.role == wire.RoleNone {
		// 没有角色就没有可写的字段归属，不写
		s.mu.Unlock()
		log.Warn().Str("doc_id", s.docID).Msg("flush: no resolved role, skipping write")
		s.clearGuardLater()
		return
	}

	fields, endedNow := s.buildFields(doc)
	tag := s.lastTag
	s.lastTag = ""
	onEnded := s.h.OnEnded
	role := s.role
	if endedNow {
		s.ended = true
	}
	s.mu.Unlock()

	if err := s.store.UpdateFields(ctx, s.docID, fields); err != nil {
		// 同样只记日志吞掉，绝不因为一次写失败拉崩整个会话
		log.Error().Err(err).Str("doc_id", s.docID).Str("action", tag).Msg("flush: write failed")
	} else {
		log.Trace().Str("doc_id", s.docID).Str("action", tag).Int("fields", len(fields)).Msg("flushed local state")
	}
	s.clearGuardLater()

	if endedNow && onEnded != nil {
		onEnded("finished", role)
	}
}

// buildFields 组装这次写入点名的全部字段
// 只点自己名下的子字段和共享牌堆；对手名下的字段永远不出现在这里
// 调用方必须持有 s.mu
func (s *Session) buildFields(doc *wire.Document) (map[string]any, bool) {
	own := "players." + string(s.role)
	gs := s.state

	fields := map[string]any{
		own + ".hand":        wire.CardsFromDomain(gs.Hand(duel.SeatSouth)),
		own + ".tempDeck":    wire.CardsFromDomain(gs.Seat(duel.SeatSouth).TempDeck),
		own + ".tempDeckSum": gs.Seat(duel.SeatSouth).TempDeckSum,
		own + ".deck":        wire.CardsFromDomain(gs.Seat(duel.SeatSouth).Deck),
		"pile":               wire.CardsFromDomain(gs.Stock),
		"discardPile":        wire.CardsFromDomain(gs.Discard),
		"turn":               string(s.seatRole(gs.Turn)),
		"lastAction": wire.LastAction{
			Player:    s.role,
			Action:    s.lastTag,
			Timestamp: time.Now().UnixMilli(),
		},
	}

	if s.lastPlayed != nil {
		fields[own+".lastCardPlayed"] = wire.FromDomain(*s.lastPlayed)
	}
	if gs.CurrentSuit != duel.SuitNone {
		cc := wire.Card{Suit: gs.CurrentSuit.Symbol()}
		if top := gs.TopDiscard(); top != nil {
			cc.Value = top.Value.String()
		}
		fields["currentCard"] = cc
	}
	if s.topten != nil && s.topten.LastMover != duel.SeatNone {
		fields["lastMover"] = string(s.seatRole(s.topten.LastMover))
	}
	if s.lastTag == wire.ActionEndTurn {
		fields["round"] = doc.Round + 1
	}

	// 状态推进：开打后第一次写把 started 推成 in-progress
	cur := Normalize(doc.Status)
	ended := false
	switch {
	case gs.Winner != duel.SeatNone && CanTransition(cur, wire.StatusFinished):
		fields["status"] = string(wire.StatusFinished)
		ended = true
	case s.topten != nil && s.topten.IsTerminal() && CanTransition(cur, wire.StatusFinished):
		fields["status"] = string(wire.StatusFinished)
		fields["points"] = s.finalPoints()
		ended = true
	case cur == wire.StatusStarted && CanTransition(cur, wire.StatusInProgress):
		fields["status"] = string(wire.StatusInProgress)
	}
	return fields, ended
}

// finalPoints 凑十终局计分，按角色落到文档的 points 字段
// 计分本身是纯函数，算几次都一样
func (s *Session) finalPoints() wire.Points {
	south, north, _ := duel.FinalScore(s.state, s.topten.LastMover)

	var p wire.Points
	if s.role == wire.RolePlayer1 {
		p.Player1, p.Player2 = south, north
	} else {
		p.Player1, p.Player2 = north, south
	}
	return p
}

// writeNow 立即写入（不走防抖），同样拉起回声防护
func (s *Session) writeNow(ctx context.Context, fields map[string]any) error {
	s.mu.Lock()
	s.writing = true
	s.mu.Unlock()

	err := s.store.UpdateFields(ctx, s.docID, fields)
	s.clearGuardLater()
	return err
}

// clearGuardLater 回声被吸收之后再过一小段时间才放下防护
func (s *Session) clearGuardLater() {
	time.AfterFunc(s.o.echoGuard, func() {
		s.mu.Lock()
		// 期间又有新的本地变更在等着写时，防护继续保持
		if s.flushTimer == nil {
			s.writing = false
		}
		s.mu.Unlock()
	})
}

// seatRole 本地座位映射到文档角色
// 调用方必须持有 s.mu
func (s *Session) seatRole(seat duel.Seat) wire.Role {
	if seat == duel.SeatSouth {
		return s.role
	}
	return s.role.Other()
}

// ---- 远端到本地：快照吸收 ----

// handleSnapshot 远端监听回调，文档每次变化（含自己写入的回声）都会进来
func (s *Session) handleSnapshot(snap docstore.Snapshot) {
	var calls []func()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if !snap.Exists() {
		// 文档没了。之前没观察到终态的话按隐式取消处理，不是错误
		if !s.ended {
			s.ended = true
			reason, by := "deleted", wire.RoleNone
			if s.prev != nil && s.prev.Status.IsTerminal() {
				reason, by = endReason(s.prev), s.prev.CancelledBy
			}
			if s.h.OnEnded != nil {
				onEnded := s.h.OnEnded
				calls = append(calls, func() { onEnded(reason, by) })
			}
		}
		s.mu.Unlock()
		s.runCalls(calls)
		return
	}

	doc, err := wire.Decode(snap)
	if err != nil {
		// 坏快照整份忽略，等下一份
		s.mu.Unlock()
		log.Warn().Err(err).Str("doc_id", s.docID).Msg("ignoring malformed snapshot")
		return
	}

	// 角色每次都按 UID 重新解析；两边都不匹配时保持旧角色（fail open）
	if r := doc.ResolveRole(s.uid); r != wire.RoleNone {
		s.role = r
	}

	if s.writing {
		// 自己写入的回声（或防护窗口内落进来的并发写）：
		// 只吸收为新的对比基线，绝不触发出站写，也不做动作推断
		s.prev = doc
		s.mu.Unlock()
		return
	}

	// 对手动作推断，先于状态重建（要用到旧的 prev）
	if s.prev != nil && s.role != wire.RoleNone && s.h.OnAction != nil {
		if act := infer.Classify(s.prev, doc, s.role.Other()); act.Kind != infer.KindNone {
			onAction := s.h.OnAction
			calls = append(calls, func() { onAction(act) })
		}
	}

	// 远端是唯一事实来源：本地状态重建为快照的样子
	if s.role != wire.RoleNone {
		wasOurTurn := s.state.Turn == duel.SeatSouth
		s.state = doc.ToState(s.role)
		if s.topten != nil {
			s.topten.State = s.state
			// 回合刚转到我们手上：清掉上一回合残留的回合内状态
			if !wasOurTurn && s.state.Turn == duel.SeatSouth {
				s.topten.HasDrawn = false
				s.topten.Claims = 0
				s.topten.Selection = nil
				s.topten.Pinned = -1
			}
		}
		if s.h.OnState != nil {
			onState, st := s.h.OnState, s.state
			calls = append(calls, func() { onState(st) })
		}
	}

	if doc.Status.IsTerminal() && !s.ended {
		s.ended = true
		if s.h.OnEnded != nil {
			onEnded := s.h.OnEnded
			reason, by := endReason(doc), doc.CancelledBy
			calls = append(calls, func() { onEnded(reason, by) })
		}
	}

	s.prev = doc
	s.mu.Unlock()

	s.runCalls(calls)
}

func (s *Session) runCalls(calls []func()) {
	for _, c := range calls {
		c()
	}
}
