// Package config 定义响应管道及其传输器的配置项。
package config

import (
	"net"
	"time"
)

const (
	defaultKeepAliveTimeout = 1 * time.Minute
	defaultReadTimeout      = 3 * time.Minute
	defaultNetwork          = "tcp"
	defaultAddr             = ":8888"
)

// Option 是用于配置 Options 唯一结构体。
type Option struct {
	F func(o *Options)
}

// Options 是配置项的结构体。
type Options struct {
	// KeepAliveTimeout 是长连接的超时时间，默认 1 分钟。
	KeepAliveTimeout time.Duration

	// ReadTimeout 是网络库读取的超时时间，默认 3 分钟，0 代表永不超时。
	ReadTimeout time.Duration

	// WriteTimeout 是网络库写入的超时时间，默认为 0，即永不超时。
	WriteTimeout time.Duration

	// IdleTimeout 是长连接的闲置超时，超时则关闭。默认为 ReadTimeout，0 代表永不超时。
	IdleTimeout time.Duration

	// DisableKeepalive 是否禁用长连接，禁用后每个响应都会携带 Connection: close。默认否。
	DisableKeepalive bool

	// DisableLeakWarning 是否关闭数据块泄漏的兜底告警。默认否。
	DisableLeakWarning bool

	Network      string // 网络协议，可选 "tcp", "unix"(unix domain socket)，默认 "tcp"
	Addr         string // 监听地址，默认 ":8888"
	ListenConfig *net.ListenConfig
}

// Apply 将指定的一组配置方法 opts 应用到配置项上。
func (o *Options) Apply(opts []Option) {
	for _, opt := range opts {
		opt.F(o)
	}
}

// NewOptions 创建基于给定配置函数的配置项。
func NewOptions(opts []Option) *Options {
	options := &Options{
		KeepAliveTimeout: defaultKeepAliveTimeout,
		ReadTimeout:      defaultReadTimeout,
		IdleTimeout:      defaultReadTimeout,
		Network:          defaultNetwork,
		Addr:             defaultAddr,
	}
	options.Apply(opts)
	return options
}

// WithKeepAliveTimeout 设置长连接超时时间。
func WithKeepAliveTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.KeepAliveTimeout = t
	}}
}

// WithReadTimeout 设置网络读取超时时间。
func WithReadTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.ReadTimeout = t
	}}
}

// WithWriteTimeout 设置网络写入超时时间。
func WithWriteTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.WriteTimeout = t
	}}
}

// WithIdleTimeout 设置长连接闲置超时时间。
func WithIdleTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.IdleTimeout = t
	}}
}

// WithDisableKeepalive 设置是否禁用长连接。
func WithDisableKeepalive(disable bool) Option {
	return Option{F: func(o *Options) {
		o.DisableKeepalive = disable
	}}
}


// WithDisableLeakWarning 设置是否关闭数据块泄漏告警。
func WithDisableLeakWarning(disable bool) Option {
	return Option{F: func(o *Options) {
		o.DisableLeakWarning = disable
	}}
}

// WithNetwork 设置网络协议。
func WithNetwork(network string) Option {
	return Option{F: func(o *Options) {
		o.Network = network
	}}
}

// WithAddr 设置监听地址。
func WithAddr(addr string) Option {
	return Option{F: func(o *Options) {
		o.Addr = addr
	}}
}

// WithListenConfig 设置监听配置。
func WithListenConfig(l *net.ListenConfig) Option {
	return Option{F: func(o *Options) {
		o.ListenConfig = l
	}}
}
