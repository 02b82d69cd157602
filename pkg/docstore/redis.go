package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"
)

var _ Store = (*RedisStore)(nil)

// RedisStore 用 Redis 实现文档存储
// 文档是带前缀键下的 JSON 串，局部更新用 sjson 逐字段改写，每次写入后
// 把新快照整体发布到该文档的频道，订阅方（包括写入方自己）都会收到
type RedisStore struct {
	client *redis.Client
	opts   *options
	cache  *expirable.LRU[string, Snapshot] // 本地读缓存
	closed chan struct{}
	once   sync.Once
}

// NewRedisStore 创建一个 Redis 文档存储
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	o := new(options)
	o.apply(opts...).setDefault()

	return &RedisStore{
		client: client,
		opts:   o,
		cache:  expirable.NewLRU[string, Snapshot](o.cacheSize, nil, o.cacheTTL),
		closed: make(chan struct{}),
	}
}

// genID generates a new document id
// 使用uuid但是去掉分隔符号
func genID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (rs *RedisStore) docKey(id string) string {
	return rs.opts.prefix + ":doc:" + id
}

func (rs *RedisStore) channelKey(id string) string {
	return rs.opts.prefix + ":doc:changed:" + id
}

func (rs *RedisStore) isClosed() bool {
	select {
	case <-rs.closed:
		return true
	default:
		return false
	}
}

// CreateDocument 新建文档
// fields 的键是 sjson 风格的字段路径，从空对象逐个写入
func (rs *RedisStore) CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if rs.isClosed() {
		return "", ErrStoreClosed
	}

	id := collection + ":" + genID()

	doc := []byte(`{}`)
	var err error
	for path, value := range fields {
		doc, err = sjson.SetBytes(doc, path, value)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to build document")
			return "", fmt.Errorf("sjson set %q failed: %w", path, err)
		}
	}

	if err := rs.client.Set(ctx, rs.docKey(id), doc, 0).Err(); err != nil {
		log.Error().Err(err).Str("doc_id", id).Msg("failed to create document")
		return "", fmt.Errorf("redis SET failed: %w", err)
	}
	rs.cache.Add(id, Snapshot(doc))
	rs.publish(ctx, id, doc)

	log.Trace().Str("doc_id", id).Int("size", len(doc)).Msg("document created")
	return id, nil
}

// GetDocument 读取文档，不存在时返回 (nil, nil)
func (rs *RedisStore) GetDocument(ctx context.Context, id string) (Snapshot, error) {
	if rs.isClosed() {
		return nil, ErrStoreClosed
	}

	if snap, ok := rs.cache.Get(id); ok {
		return snap, nil
	}

	data, err := rs.client.Get(ctx, rs.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Error().Err(err).Str("doc_id", id).Msg("failed to get document")
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	snap := Snapshot(data)
	rs.cache.Add(id, snap)
	return snap, nil
}

// UpdateFields 局部更新点到名的字段路径
//
// 注意：这里的取-改-写不是事务。两台客户端同时更新同一份文档时，后写
// 的一方会悄悄覆盖先写的一方（last write wins）。这是设计上接受的弱点：
// 真正防住竞争的是回合纪律——持有回合的一方才会动共享牌堆——而不是
// 存储层的隔离。
func (rs *RedisStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if rs.isClosed() {
		return ErrStoreClosed
	}

	doc, err := rs.client.Get(ctx, rs.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrDocumentNotFound
		}
		log.Error().Err(err).Str("doc_id", id).Msg("failed to read document for update")
		return fmt.Errorf("redis GET failed: %w", err)
	}

	for path, value := range fields {
		doc, err = sjson.SetBytes(doc, path, value)
		if err != nil {
			log.Error().Err(err).Str("doc_id", id).Str("path", path).Msg("failed to set field")
			return fmt.Errorf("sjson set %q failed: %w", path, err)
		}
	}

	if err := rs.client.Set(ctx, rs.docKey(id), doc, 0).Err(); err != nil {
		log.Error().Err(err).Str("doc_id", id).Msg("failed to write document")
		return fmt.Errorf("redis SET failed: %w", err)
	}
	rs.cache.Add(id, Snapshot(doc))
	rs.publish(ctx, id, doc)

	log.Trace().Str("doc_id", id).Int("fields", len(fields)).Msg("document fields updated")
	return nil
}

// DeleteDocument 删除文档并向订阅者广播墓碑（空载荷）
func (rs *RedisStore) DeleteDocument(ctx context.Context, id string) error {
	if rs.isClosed() {
		return ErrStoreClosed
	}

	if err := rs.client.Del(ctx, rs.docKey(id)).Err(); err != nil {
		log.Error().Err(err).Str("doc_id", id).Msg("failed to delete document")
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	rs.cache.Remove(id)
	rs.publish(ctx, id, nil)

	log.Trace().Str("doc_id", id).Msg("document deleted")
	return nil
}

// publish 把新快照广播到文档频道；空载荷表示删除
// 广播失败只记日志不回滚：写本身已经成功，订阅方迟早会重新拉到
func (rs *RedisStore) publish(ctx context.Context, id string, doc []byte) {
	if err := rs.client.Publish(ctx, rs.channelKey(id), string(doc)).Err(); err != nil {
		log.Error().Err(err).Str("doc_id", id).Msg("failed to publish document change")
	}
}

// Subscribe 订阅文档的每次变更
// 回调在订阅自己的 goroutine 里执行；文档删除时收到 nil 快照
func (rs *RedisStore) Subscribe(ctx context.Context, id string, onChange func(Snapshot)) (*Subscription, error) {
	if rs.isClosed() {
		return nil, ErrStoreClosed
	}

	ps := rs.client.Subscribe(ctx, rs.channelKey(id))
	// 确认订阅建立后再返回，避免丢掉紧跟着的第一次变更
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		log.Error().Err(err).Str("doc_id", id).Msg("failed to subscribe document")
		return nil, fmt.Errorf("redis SUBSCRIBE failed: %w", err)
	}

	s := &Subscription{
		store:    rs,
		docID:    id,
		pubsub:   ps,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()

	log.Trace().Str("doc_id", id).Msg("document subscription created")
	return s, nil
}

// Close 关闭存储，之后的所有操作都返回 ErrStoreClosed
func (rs *RedisStore) Close() {
	rs.once.Do(func() {
		close(rs.closed)
	})
}

// Subscription 一份文档的变更订阅
type Subscription struct {
	store    *RedisStore
	docID    string
	pubsub   *redis.PubSub
	onChange func(Snapshot)
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// loop 接收循环：把频道消息转成快照交给回调
// 广播里带着完整的新快照，先用它刷新本地读缓存再交给回调：
// 回调里（以及之后）的 GetDocument 不会再读到广播之前的旧文档
func (s *Subscription) loop() {
	defer s.wg.Done()

	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.stopChan:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap Snapshot
			if msg.Payload != "" {
				snap = Snapshot(msg.Payload)
				s.store.cache.Add(s.docID, snap)
			} else {
				s.store.cache.Remove(s.docID)
			}
			s.onChange(snap)
		}
	}
}

// Stop 停止订阅并等待接收循环退出
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if err := s.pubsub.Close(); err != nil {
			log.Error().Err(err).Str("doc_id", s.docID).Msg("failed to close pubsub")
		}
	})
	s.wg.Wait()
}
