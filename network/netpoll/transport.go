package netpoll

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/cloudwego/netpoll"
	"github.com/favbox/ripple/common/config"
	"github.com/favbox/ripple/common/hlog"
	"github.com/favbox/ripple/network"
)

var _ network.Transporter = (*transport)(nil)

func init() {
	// 禁用 netpoll 的日志
	netpoll.SetLoggerOutput(io.Discard)
}

type transport struct {
	sync.RWMutex
	network      string
	addr         string
	listener     net.Listener
	eventLoop    netpoll.EventLoop
	listenConfig *net.ListenConfig
	options      *config.Options
}

// ListenAndServe 绑定监听地址并持续服务，除非出现错误或传输器关闭。
func (t *transport) ListenAndServe(onData network.OnData) (err error) {
	_ = network.UnlinkUdsFile(t.network, t.addr)
	if t.listenConfig != nil {
		t.listener, err = t.listenConfig.Listen(context.Background(), t.network, t.addr)
	} else {
		t.listener, err = net.Listen(t.network, t.addr)
	}

	if err != nil {
		panic("创建 netpoll 监听器失败：" + err.Error())
	}

	opts := []netpoll.Option{
		netpoll.WithIdleTimeout(t.options.KeepAliveTimeout),
		netpoll.WithOnPrepare(func(conn netpoll.Connection) context.Context {
			// 设置准备期间的读写超时
			_ = conn.SetReadTimeout(t.options.ReadTimeout)
			if t.options.WriteTimeout > 0 {
				_ = conn.SetWriteTimeout(t.options.WriteTimeout)
			}
			return context.Background()
		}),
	}

	// 创建 EventLoop
	t.Lock()
	t.eventLoop, err = netpoll.NewEventLoop(func(ctx context.Context, connection netpoll.Connection) error {
		return onData(ctx, newConn(connection))
	}, opts...)
	t.Unlock()
	if err != nil {
		panic("创建 netpoll event-loop 失败")
	}

	// 启动服务器
	hlog.SystemLogger().Infof("传输器监听地址=%s", t.listener.Addr().String())
	t.RLock()
	err = t.eventLoop.Serve(t.listener)
	t.RUnlock()
	if err != nil {
		panic("netpoll event-loop 无法启动监听服务：" + err.Error())
	}

	return nil
}

// Close 强制传输器立即关闭（无超时等待）。
func (t *transport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	return t.Shutdown(ctx)
}

// Shutdown 停止监听器并优雅关闭。将等待所有连接关闭，直到触达截止时间。
func (t *transport) Shutdown(ctx context.Context) error {
	defer func() {
		_ = network.UnlinkUdsFile(t.network, t.addr)
		t.RUnlock()
	}()
	t.RLock()
	if t.eventLoop == nil {
		return nil
	}
	return t.eventLoop.Shutdown(ctx)
}

// NewTransporter 创建 netpoll 网络传输器。
func NewTransporter(options *config.Options) network.Transporter {
	return &transport{
		network:      options.Network,
		addr:         options.Addr,
		listenConfig: options.ListenConfig,
		options:      options,
	}
}
