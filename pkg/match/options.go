package match

import (
	"time"

	"github.com/spf13/viper"
)

// Variant 玩法
type Variant uint8

const (
	VariantEights Variant = iota // 疯狂八
	VariantTopTen                // 凑十（Top10）
)

type options struct {
	variant     Variant
	debounce    time.Duration // 本地变更合并成一次写入的防抖窗口
	echoGuard   time.Duration // 写入后回声防护的保持时间
	cancelGrace time.Duration // 取消落终态之后到删档之间的宽限期
}

// apply apply options
func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// setDefault default configuration
// 未显式配置的时长先看 viper，再落默认值
func (o *options) setDefault() {
	if o.debounce <= 0 {
		if d := viper.GetDuration("sync.debounce"); d > 0 {
			o.debounce = d
		} else {
			o.debounce = 200 * time.Millisecond
		}
	}
	if o.echoGuard <= 0 {
		if d := viper.GetDuration("sync.echo_guard"); d > 0 {
			o.echoGuard = d
		} else {
			o.echoGuard = 400 * time.Millisecond
		}
	}
	if o.cancelGrace <= 0 {
		if d := viper.GetDuration("sync.cancel_grace"); d > 0 {
			o.cancelGrace = d
		} else {
			o.cancelGrace = 2 * time.Second
		}
	}
}

type Option func(*options)

// WithVariant 设置玩法
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithDebounce 设置写入防抖窗口
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithEchoGuard 设置回声防护的保持时间
func WithEchoGuard(d time.Duration) Option {
	return func(o *options) {
		o.echoGuard = d
	}
}

// WithCancelGrace 设置取消到删档的宽限期
func WithCancelGrace(d time.Duration) Option {
	return func(o *options) {
		o.cancelGrace = d
	}
}
