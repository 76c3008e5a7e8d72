// Package pipeline 实现单连接上有序、免阻塞的 HTTP/1.1 响应写出管道。
//
// 管道由四部分组成：把所有传输操作串到单一事件循环协程上的通道包装器、
// 管理单个响应生命周期的响应状态机、保证流水线化响应按提交顺序写出的
// 定序器，以及恰好释放一次的池化数据块。
package pipeline

import "sync"

// Future 表示一次异步操作的完成信号。
//
// 首次 Complete 生效，后续调用均为空操作。回调按注册顺序执行一次。
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	err       error
	callbacks []func(error)
}

// NewFuture 创建一个未完成的 Future。
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// CompletedFuture 创建一个已以 err 完成的 Future。
func CompletedFuture(err error) *Future {
	f := NewFuture()
	f.Complete(err)
	return f
}

// Complete 以 err 完成该 Future，返回是否为首次完成。
//
// 已注册的回调在调用方协程上按注册顺序执行。
func (f *Future) Complete(err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(err)
	}
	return true
}

// OnComplete 注册完成回调。已完成时立即在当前协程执行。
func (f *Future) OnComplete(cb func(error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	cb(err)
}

// Done 返回完成时被关闭的通道。
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Completed 汇报该 Future 是否已完成。
func (f *Future) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Err 返回完成时携带的错误。未完成时返回 nil。
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
