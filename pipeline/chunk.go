package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/mcache"
	errs "github.com/favbox/ripple/common/errors"
	"github.com/favbox/ripple/common/hlog"
)

var (
	chunkID uint64

	leakWarningDisabled uint32
	leakWarningOnce     sync.Once
)

// SetLeakWarning 开关数据块泄漏的兜底告警。
func SetLeakWarning(enable bool) {
	if enable {
		atomic.StoreUint32(&leakWarningDisabled, 0)
	} else {
		atomic.StoreUint32(&leakWarningDisabled, 1)
	}
}

// Chunk 包装一块池化内存，保证底层内存恰好被释放一次。
//
// 调用方应显式 Release；遗漏释放时由终结器兜底回收，
// 并在整个进程内至多告警一次。
type Chunk struct {
	id       uint64
	buf      []byte
	released uint32
	flush    bool
	free     func([]byte)
}

// NewChunk 从 mcache 分配一块 n 字节的数据块并拷入 p。
func NewChunk(p []byte) *Chunk {
	buf := mcache.Malloc(len(p))
	copy(buf, p)
	return newChunk(buf, false, mcache.Free)
}

// WrapChunk 包装一块外部池化内存，释放时回调 free。
func WrapChunk(buf []byte, free func([]byte)) *Chunk {
	return newChunk(buf, false, free)
}

// NewFlushMarker 创建一个零长度的冲刷标记块。
//
// 冲刷标记只传播冲刷信号，不算作正文数据。
func NewFlushMarker() *Chunk {
	return newChunk(nil, true, nil)
}

func newChunk(buf []byte, flush bool, free func([]byte)) *Chunk {
	c := &Chunk{
		id:    atomic.AddUint64(&chunkID, 1),
		buf:   buf,
		flush: flush,
		free:  free,
	}
	runtime.SetFinalizer(c, (*Chunk).finalize)
	return c
}

// ID 返回数据块的单调递增编号。
func (c *Chunk) ID() uint64 {
	return c.id
}

// IsFlushMarker 汇报数据块是否为纯冲刷标记。
func (c *Chunk) IsFlushMarker() bool {
	return c.flush
}

// Len 返回数据块的字节长度。
func (c *Chunk) Len() int {
	return len(c.buf)
}

// Data 返回数据块的只读视图。已释放时返回 ErrChunkReleased。
func (c *Chunk) Data() ([]byte, error) {
	if atomic.LoadUint32(&c.released) == 1 {
		return nil, errs.ErrChunkReleased
	}
	return c.buf, nil
}

// Release 释放底层内存，返回是否为真正触发释放的那一次。
//
// 重复释放是空操作。
func (c *Chunk) Release() bool {
	if !atomic.CompareAndSwapUint32(&c.released, 0, 1) {
		return false
	}
	runtime.SetFinalizer(c, nil)
	if c.free != nil {
		c.free(c.buf)
	}
	c.buf = nil
	return true
}

// finalize 是遗漏显式释放时的兜底回收。
func (c *Chunk) finalize() {
	if atomic.LoadUint32(&c.released) == 1 {
		return
	}
	if atomic.LoadUint32(&leakWarningDisabled) == 0 {
		leakWarningOnce.Do(func() {
			hlog.SystemLogger().Warnf("数据块 %d 未释放即被回收，已由终结器兜底释放。该告警每个进程只出现一次", c.id)
		})
	}
	c.Release()
}
