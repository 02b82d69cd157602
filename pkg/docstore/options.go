package docstore

import "time"

type options struct {
	prefix    string
	cacheSize int
	cacheTTL  time.Duration
}

// apply apply options
func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// setDefault default configuration
func (o *options) setDefault() {
	if o.prefix == "" {
		o.prefix = "duel"
	}
	if o.cacheSize <= 0 {
		o.cacheSize = 128
	}
	if o.cacheTTL <= 0 {
		o.cacheTTL = 2 * time.Second // 读缓存只为吸收同一次回调里的重复读
	}
}

type Option func(*options)

// WithPrefix 设置 Redis 键前缀
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCacheSize 设置本地读缓存的容量
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithCacheTTL 设置本地读缓存的过期时间
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = d
	}
}
