package match

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/play/duel/pkg/docstore"
	"github.com/play/duel/pkg/duel"
	"github.com/play/duel/pkg/infer"
	"github.com/play/duel/pkg/wire"
)

func newTestStore(t *testing.T) *docstore.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := docstore.NewRedisStore(client)
	t.Cleanup(func() {
		store.Close()
		_ = client.Close()
	})
	return store
}

// countingStore 统计出站写次数，用来验证回声防护不会引发回写风暴
type countingStore struct {
	docstore.Store
	updates atomic.Int32
}

func (c *countingStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	c.updates.Add(1)
	return c.Store.UpdateFields(ctx, id, fields)
}

// fastOpts 测试用的极短时间参数
func fastOpts(v Variant) []Option {
	return []Option{
		WithVariant(v),
		WithDebounce(10 * time.Millisecond),
		WithEchoGuard(40 * time.Millisecond),
		WithCancelGrace(50 * time.Millisecond),
	}
}

// newFixedMatch 造一份牌面已知的对局文档：player1 手里只有 ♥7，
// 弃牌堆顶是 ♥5，轮到 player1
func newFixedMatch(t *testing.T, store docstore.Store) string {
	t.Helper()
	id, err := store.CreateDocument(context.Background(), collection, map[string]any{
		"status":               string(wire.StatusStarted),
		"players.player1.uid":  "u1",
		"players.player1.name": "南",
		"players.player1.hand": []wire.Card{{Suit: "♥", Value: "7"}},
		"players.player2.uid":  "u2",
		"players.player2.name": "北",
		"players.player2.hand": []wire.Card{{Suit: "♠", Value: "4"}, {Suit: "♣", Value: "J"}},
		"pile":                 []wire.Card{{Suit: "♣", Value: "9"}},
		"discardPile":          []wire.Card{{Suit: "♥", Value: "5"}},
		"currentCard":          wire.Card{Suit: "♥", Value: "5"},
		"turn":                 string(wire.RolePlayer1),
		"round":                1,
	})
	require.NoError(t, err)
	return id
}

func TestOpenMissingDocument(t *testing.T) {
	store := newTestStore(t)
	_, err := Open(context.Background(), store, "matches:nope", "u1", Handlers{}, fastOpts(VariantEights)...)
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestOpenResolvesRoleFailOpen(t *testing.T) {
	store := newTestStore(t)
	id := newFixedMatch(t, store)

	// uid 两边都不匹配：照样打开，只是没有角色
	s, err := Open(context.Background(), store, id, "stranger", Handlers{}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, wire.RoleNone, s.Role())

	// uid 匹配 player2：从文档视角重建，自己的手牌两张
	s2, err := Open(context.Background(), store, id, "u2", Handlers{}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, wire.RolePlayer2, s2.Role())
	require.Len(t, s2.State().Hand(duel.SeatSouth), 2)
	require.Equal(t, duel.SeatNorth, s2.State().Turn)
}

func TestPlayCardFlushesOwnFieldsOnly(t *testing.T) {
	store := newTestStore(t)
	cs := &countingStore{Store: store}
	id := newFixedMatch(t, store)

	s, err := Open(context.Background(), cs, id, "u1", Handlers{}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer s.Close()

	// 花色匹配，出牌成功，手牌打空即获胜
	require.True(t, s.PlayCard(0, duel.SuitNone))
	require.Equal(t, duel.SeatSouth, s.State().Winner)

	require.Eventually(t, func() bool {
		return cs.updates.Load() == 1
	}, time.Second, 10*time.Millisecond)

	snap, err := store.GetDocument(context.Background(), id)
	require.NoError(t, err)
	doc, err := wire.Decode(snap)
	require.NoError(t, err)

	require.Empty(t, doc.Players.Player1.Hand)
	require.Equal(t, wire.StatusFinished, doc.Status)
	require.Equal(t, "♥", doc.Players.Player1.LastCardPlayed.Suit)
	require.Equal(t, wire.ActionPlay, doc.LastAction.Action)
	// 对手名下的字段一个都没碰
	require.Len(t, doc.Players.Player2.Hand, 2)
	require.Equal(t, "北", doc.Players.Player2.Name)

	// 自己写入的回声只被吸收，不触发任何新的出站写
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), cs.updates.Load())
}

func TestOpponentInferenceAndReconciliation(t *testing.T) {
	store := newTestStore(t)
	id := newFixedMatch(t, store)
	ctx := context.Background()

	actions := make(chan infer.Action, 8)
	states := make(chan *duel.GameState, 8)
	ended := make(chan string, 2)

	guest, err := Open(ctx, store, id, "u2", Handlers{
		OnAction: func(a infer.Action) { actions <- a },
		OnState:  func(gs *duel.GameState) { states <- gs },
		OnEnded:  func(reason string, _ wire.Role) { ended <- reason },
	}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer guest.Close()

	host, err := Open(ctx, store, id, "u1", Handlers{}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer host.Close()

	require.True(t, host.PlayCard(0, duel.SuitNone))

	select {
	case a := <-actions:
		require.Equal(t, infer.KindPlayed, a.Kind)
		require.NotNil(t, a.Card)
		require.Equal(t, duel.Card{Suit: duel.SuitHeart, Value: duel.Value7}, *a.Card)
	case <-time.After(2 * time.Second):
		t.Fatal("等待对手动作超时")
	}

	// 状态重建：对手手牌清空。分出胜负后行动权不再推进，
	// 所以 turn 停在出完最后一张牌的对手那边
	require.Eventually(t, func() bool {
		select {
		case gs := <-states:
			return len(gs.Hand(duel.SeatNorth)) == 0 && gs.Turn == duel.SeatNorth
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case reason := <-ended:
		require.Equal(t, "finished", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("等待终局通知超时")
	}
}

func TestCancelWritesThenDeletes(t *testing.T) {
	store := newTestStore(t)
	id := newFixedMatch(t, store)
	ctx := context.Background()

	type end struct {
		reason string
		by     wire.Role
	}
	guestEnded := make(chan end, 2)
	guest, err := Open(ctx, store, id, "u2", Handlers{
		OnEnded: func(reason string, by wire.Role) { guestEnded <- end{reason, by} },
	}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer guest.Close()

	hostEnded := make(chan end, 2)
	host, err := Open(ctx, store, id, "u1", Handlers{
		OnEnded: func(reason string, by wire.Role) { hostEnded <- end{reason, by} },
	}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer host.Close()

	require.NoError(t, host.Cancel(ctx, "user quit"))

	// 取消是立即落档的：动作日志记一条 cancel，不冒充回合结束
	snap, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	doc, err := wire.Decode(snap)
	require.NoError(t, err)
	require.Equal(t, wire.StatusCancelled, doc.Status)
	require.Equal(t, wire.ActionCancel, doc.LastAction.Action)
	require.Equal(t, wire.RolePlayer1, doc.LastAction.Player)

	select {
	case e := <-hostEnded:
		require.Equal(t, "user quit", e.reason)
	case <-time.After(time.Second):
		t.Fatal("取消方没有收到结束通知")
	}
	select {
	case e := <-guestEnded:
		require.Equal(t, "user quit", e.reason)
		require.Equal(t, wire.RolePlayer1, e.by)
	case <-time.After(2 * time.Second):
		t.Fatal("对端没有收到取消通知")
	}

	// 宽限期过后文档被删掉；对端已经出局，不应再收到第二次通知
	require.Eventually(t, func() bool {
		snap, gerr := store.GetDocument(ctx, id)
		return gerr == nil && !snap.Exists()
	}, 2*time.Second, 20*time.Millisecond)
	select {
	case <-guestEnded:
		t.Fatal("删档不应产生重复的结束通知")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDeletionIsImplicitCancellation(t *testing.T) {
	store := newTestStore(t)
	id := newFixedMatch(t, store)
	ctx := context.Background()

	ended := make(chan string, 1)
	s, err := Open(ctx, store, id, "u2", Handlers{
		OnEnded: func(reason string, _ wire.Role) { ended <- reason },
	}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer s.Close()

	// 对端没走取消流程直接删档：按隐式取消处理，不当错误
	require.NoError(t, store.DeleteDocument(ctx, id))

	select {
	case reason := <-ended:
		require.Equal(t, "deleted", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("删档后没有收到结束通知")
	}
}

func TestAcceptStartsMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := Create(ctx, store,
		Identity{UID: "u1", Name: "南"},
		Identity{UID: "u2", Name: "北"},
		fastOpts(VariantEights)...)
	require.NoError(t, err)

	s, err := Open(ctx, store, id, "u2", Handlers{}, fastOpts(VariantEights)...)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Accept(ctx))

	snap, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	doc, err := wire.Decode(snap)
	require.NoError(t, err)
	require.Equal(t, wire.StatusStarted, doc.Status)
}

// 防抖窗口内对端取消了对局：随后的写回必须整体作废，
// 绝不能把终态文档改写回对局中
func TestFlushDoesNotOverwriteCancellation(t *testing.T) {
	mr := miniredis.RunT(t)
	newStore := func() *docstore.RedisStore {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return docstore.NewRedisStore(client)
	}
	local, remote := newStore(), newStore()
	ctx := context.Background()

	id := newFixedMatch(t, local)

	s, err := Open(ctx, local, id, "u1", Handlers{},
		WithVariant(VariantEights),
		WithDebounce(150*time.Millisecond),
		WithEchoGuard(40*time.Millisecond),
		WithCancelGrace(time.Minute))
	require.NoError(t, err)
	defer s.Close()

	// 出牌进入防抖窗口；对端趁窗口还没关把对局取消掉
	require.True(t, s.PlayCard(0, duel.SuitNone))
	require.NoError(t, remote.UpdateFields(ctx, id, map[string]any{
		"status":             string(wire.StatusCancelled),
		"cancelledBy":        string(wire.RolePlayer2),
		"cancellationReason": "user quit",
	}))

	// 取消的广播很快就会刷到本地，远早于防抖到期
	require.Eventually(t, func() bool {
		snap, gerr := local.GetDocument(ctx, id)
		return gerr == nil && snap.Get("status").String() == string(wire.StatusCancelled)
	}, 100*time.Millisecond, 5*time.Millisecond)

	// 等防抖和回声窗口都过去，再从一个干净的存储实例核对终态
	time.Sleep(400 * time.Millisecond)
	snap, err := newStore().GetDocument(ctx, id)
	require.NoError(t, err)
	doc, err := wire.Decode(snap)
	require.NoError(t, err)
	require.Equal(t, wire.StatusCancelled, doc.Status)
	require.Equal(t, wire.RolePlayer2, doc.CancelledBy)
	require.Equal(t, "user quit", doc.CancellationReason)
}
