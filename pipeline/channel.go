package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/favbox/ripple/common/config"
	errs "github.com/favbox/ripple/common/errors"
	"github.com/favbox/ripple/common/hlog"
	"github.com/favbox/ripple/network"
)

var channelID uint64

// task 是交由事件循环执行的一次传输操作。
type task struct {
	run      func(conn network.Conn) error
	fut      *Future
	terminal bool
}

// Channel 把一条连接上的全部传输操作串到单一事件循环协程上。
//
// 任何协程都可以提交写入，提交永不阻塞：任务进入无界队列，
// 由专属协程按提交顺序执行。写入失败通过 Future 送达，不会同步抛出。
type Channel struct {
	conn network.Conn
	id   string

	mu     sync.Mutex
	tasks  *queue.Queue
	wake   chan struct{}
	closed uint32

	readRequester func()
}

// NewChannel 为连接创建通道包装器并启动其事件循环。
func NewChannel(conn network.Conn, opts *config.Options) *Channel {
	if opts == nil {
		opts = config.NewOptions(nil)
	}
	ch := &Channel{
		conn:  conn,
		id:    channelIDFor(conn),
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
	}
	if opts.WriteTimeout > 0 {
		_ = conn.SetWriteTimeout(opts.WriteTimeout)
	}
	SetLeakWarning(!opts.DisableLeakWarning)
	go ch.loop()
	return ch
}

func channelIDFor(conn network.Conn) string {
	n := atomic.AddUint64(&channelID, 1)
	if addr := conn.RemoteAddr(); addr != nil {
		return fmt.Sprintf("0x%x/%s", n, addr.String())
	}
	return fmt.Sprintf("0x%x", n)
}

// ID 返回连接的标识，用于日志与诊断。
func (ch *Channel) ID() string {
	return ch.id
}

// Submit 提交一个在事件循环上执行的传输操作。
//
// 返回的 Future 在操作交由传输层后完成；通道已关闭时立即以
// ErrConnectionClosed 完成。
func (ch *Channel) Submit(run func(conn network.Conn) error) *Future {
	return ch.submit(&task{run: run, fut: NewFuture()})
}

func (ch *Channel) submit(t *task) *Future {
	ch.mu.Lock()
	if atomic.LoadUint32(&ch.closed) == 1 {
		ch.mu.Unlock()
		t.fut.Complete(errs.ErrConnectionClosed)
		return t.fut
	}
	if t.terminal {
		atomic.StoreUint32(&ch.closed, 1)
	}
	ch.tasks.Add(t)
	ch.mu.Unlock()

	select {
	case ch.wake <- struct{}{}:
	default:
	}
	return t.fut
}

// Write 提交一次字节写入，flush 为真时随即冲刷。
func (ch *Channel) Write(flush bool, p []byte) *Future {
	return ch.Submit(func(conn network.Conn) error {
		if _, err := conn.WriteBinary(p); err != nil {
			return err
		}
		if flush {
			return conn.Flush()
		}
		return nil
	})
}

// WriteChunk 提交一次数据块写入，数据原样落线，提交后释放数据块。
func (ch *Channel) WriteChunk(flush bool, c *Chunk) *Future {
	return ch.Submit(func(conn network.Conn) error {
		defer c.Release()
		data, err := c.Data()
		if err != nil {
			return err
		}
		if _, err = conn.WriteBinary(data); err != nil {
			return err
		}
		if flush {
			return conn.Flush()
		}
		return nil
	})
}

// Flush 提交一次冲刷，把先前写入但未发送的数据送往对端。
func (ch *Channel) Flush() *Future {
	return ch.Submit(func(conn network.Conn) error {
		return conn.Flush()
	})
}

// SetReadRequester 注册入站侧的续读回调。
func (ch *Channel) SetReadRequester(fn func()) {
	ch.readRequester = fn
}

// Read 向入站侧请求再读一个周期，作为读方向的背压信号。
func (ch *Channel) Read() {
	if ch.readRequester != nil {
		ch.readRequester()
	}
}

// Close 提交关闭操作。队列中先于它的写入仍会执行，其后的提交被拒绝。
func (ch *Channel) Close() *Future {
	return ch.submit(&task{
		run: func(conn network.Conn) error {
			return conn.Close()
		},
		fut:      NewFuture(),
		terminal: true,
	})
}

// Closed 汇报通道是否已经关闭或正在关闭。
func (ch *Channel) Closed() bool {
	return atomic.LoadUint32(&ch.closed) == 1
}

// loop 是连接的事件循环：逐个取出任务执行并完成其 Future。
func (ch *Channel) loop() {
	for {
		ch.mu.Lock()
		if ch.tasks.Length() == 0 {
			if atomic.LoadUint32(&ch.closed) == 1 {
				ch.mu.Unlock()
				return
			}
			ch.mu.Unlock()
			<-ch.wake
			continue
		}
		t := ch.tasks.Remove().(*task)
		ch.mu.Unlock()

		err := t.run(ch.conn)
		if err != nil {
			err = ch.normalizeErr(err)
			if !t.terminal {
				ch.failPending(err)
			}
		}
		t.fut.Complete(err)
		if t.terminal {
			return
		}
	}
}

// failPending 传输出错后使通道失效，并以该错误完成剩余任务。
func (ch *Channel) failPending(err error) {
	ch.mu.Lock()
	atomic.StoreUint32(&ch.closed, 1)
	remaining := make([]*task, 0, ch.tasks.Length())
	for ch.tasks.Length() > 0 {
		remaining = append(remaining, ch.tasks.Remove().(*task))
	}
	ch.mu.Unlock()

	if err := ch.conn.Close(); err != nil {
		hlog.SystemLogger().Debugf("连接 %s 关闭失败: %v", ch.id, err)
	}
	for _, t := range remaining {
		t.fut.Complete(err)
	}
}

func (ch *Channel) normalizeErr(err error) error {
	if n, ok := ch.conn.(network.ErrorNormalization); ok {
		return n.ToRippleError(err)
	}
	return err
}
