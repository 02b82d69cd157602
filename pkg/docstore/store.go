// docstore 抽象共享对局文档的存储
//
// 核心逻辑只依赖五个原语：建档、取档、按字段局部更新、删档、订阅变更。
// 局部更新的语义是“只改点到名的字段，其余原样保留”，这是两台客户端
// 字段归属纪律的基础。
package docstore

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrStoreClosed      = errors.New("store is closed")
)

// Snapshot 一次观察到的文档内容（原始 JSON）
// nil 表示文档不存在或已被删除
type Snapshot []byte

// Exists 文档是否存在
func (s Snapshot) Exists() bool {
	return s != nil
}

// Get 按路径读取字段
func (s Snapshot) Get(path string) gjson.Result {
	return gjson.GetBytes(s, path)
}

// Store 文档存储的抽象接口
type Store interface {
	// CreateDocument 新建一份文档，fields 的键是 sjson 风格的字段路径
	CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error)

	// GetDocument 读取文档，不存在时返回 (nil, nil) 而不是错误
	GetDocument(ctx context.Context, id string) (Snapshot, error)

	// UpdateFields 局部更新：只写点到名的字段路径，其余字段保持原样
	UpdateFields(ctx context.Context, id string, fields map[string]any) error

	// DeleteDocument 删除文档并通知所有订阅者
	DeleteDocument(ctx context.Context, id string) error

	// Subscribe 订阅文档的每次变更（包括订阅方自己写入的回声）
	// 文档被删除时回调收到 nil 快照
	Subscribe(ctx context.Context, id string, onChange func(Snapshot)) (*Subscription, error)
}
