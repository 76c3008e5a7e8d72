package network

import (
	"context"
	"time"
)

// OnData 定义连接上有数据可读时的回调。
type OnData func(ctx context.Context, conn Conn) error

// Transporter 表示网络传输器。
type Transporter interface {
	// ListenAndServe 监听并持续服务，数据到达时触发 onData。
	ListenAndServe(onData OnData) error

	// Close 立即关闭传输器。
	Close() error

	// Shutdown 在超时时间内优雅关闭传输器。
	Shutdown(ctx context.Context) error
}

// Dialer 表示网络拨号器。
type Dialer interface {
	// DialConnection 拨打指定地址，返回缓冲读写连接。
	DialConnection(network, address string, timeout time.Duration) (Conn, error)
}
