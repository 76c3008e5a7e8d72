package pipeline

import "sync"

// Sequencer 保证一条连接上流水线化响应的写入按提交顺序送达传输层。
//
// 每个写入动作要么在无前驱时立即执行，要么在前驱提交完成后执行。
// 这只是提交顺序的保证，不串行化实际 I/O 延迟。
type Sequencer struct {
	mu   sync.Mutex
	prev *Future
}

// NewSequencer 创建一条连接的定序器。
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Reserve 为下一个响应在待写链上占位。
//
// done 是该响应全部写入提交完毕的信号，成为链上新的尾部；
// 返回的前驱完成后该响应才许提交首笔写入。
func (s *Sequencer) Reserve(done *Future) *Future {
	s.mu.Lock()
	prev := s.prev
	s.prev = done
	s.mu.Unlock()
	if prev == nil {
		return CompletedFuture(nil)
	}
	return prev
}

// OrderedWrite 把写入动作挂到连接的待写链尾。
//
// action 返回代表本次提交的 Future；下一个动作在该 Future
// 完成后才会执行。action 返回 nil 视为立即提交完成。
func (s *Sequencer) OrderedWrite(action func() *Future) *Future {
	s.mu.Lock()
	prev := s.prev
	next := NewFuture()
	s.prev = next
	s.mu.Unlock()

	run := func() {
		f := action()
		if f == nil {
			next.Complete(nil)
			return
		}
		f.OnComplete(func(err error) {
			next.Complete(err)
		})
	}

	if prev == nil {
		run()
	} else {
		prev.OnComplete(func(error) {
			run()
		})
	}
	return next
}
