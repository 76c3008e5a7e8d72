package pipeline

import (
	"sync/atomic"

	"github.com/favbox/ripple/protocol"
	"github.com/favbox/ripple/protocol/consts"
)

// Exchange 承载协议层交来的单次请求事实，供响应状态机决策使用。
//
// 其中实体状态用于连接复用前的请求体排空：应用未消费完请求体时，
// 管道要么代为排空丢弃，要么在应用仍在索要数据的矛盾状态下放弃复用。
type Exchange struct {
	req           *protocol.RequestHeader
	correlationID string

	entityAnalyzed  *Future
	entityConsumed  uint32
	entityRequested uint32
	drain           func()
}

// NewExchange 创建一次交换的上下文。无请求体时实体分析默认已完成。
func NewExchange(req *protocol.RequestHeader, correlationID string) *Exchange {
	return &Exchange{
		req:            req,
		correlationID:  correlationID,
		entityAnalyzed: CompletedFuture(nil),
		entityConsumed: 1,
	}
}

// CorrelationID 返回本次交换的关联标识。
func (e *Exchange) CorrelationID() string {
	return e.correlationID
}

// Request 返回请求标头的只读视图。
func (e *Exchange) Request() *protocol.RequestHeader {
	return e.req
}

// KeepAlive 汇报请求侧是否允许连接复用。
func (e *Exchange) KeepAlive() bool {
	return !e.req.ConnectionClose()
}

// StreamID 返回请求携带的流关联标头值，没有时返回 nil。
func (e *Exchange) StreamID() []byte {
	return e.req.Peek(consts.HeaderStreamID)
}

// ExpectEntity 声明本次请求带有实体。drain 是丢弃剩余实体的回调。
//
// 声明后实体分析转为未完成，直到 FinishEntity 或 Drain 被调用。
func (e *Exchange) ExpectEntity(drain func()) {
	e.entityAnalyzed = NewFuture()
	atomic.StoreUint32(&e.entityConsumed, 0)
	e.drain = drain
}

// EntityAnalyzed 返回请求实体处理完毕的信号。
//
// 响应的标头写入以它为闸，保证复用连接上的帧边界正确。
func (e *Exchange) EntityAnalyzed() *Future {
	return e.entityAnalyzed
}

// MarkEntityRequested 记录应用已主动索要实体数据。
func (e *Exchange) MarkEntityRequested() {
	atomic.StoreUint32(&e.entityRequested, 1)
}

// EntityRequested 汇报应用是否索要过实体数据。
func (e *Exchange) EntityRequested() bool {
	return atomic.LoadUint32(&e.entityRequested) == 1
}

// FinishEntity 标记应用已消费完请求实体。
func (e *Exchange) FinishEntity() {
	if atomic.CompareAndSwapUint32(&e.entityConsumed, 0, 1) {
		e.entityAnalyzed.Complete(nil)
	}
}

// EntityConsumed 汇报请求实体是否已处理完毕。
func (e *Exchange) EntityConsumed() bool {
	return atomic.LoadUint32(&e.entityConsumed) == 1
}

// Drain 代应用排空并丢弃剩余请求实体，不触发任何应用逻辑。
func (e *Exchange) Drain() {
	if !atomic.CompareAndSwapUint32(&e.entityConsumed, 0, 1) {
		return
	}
	if e.drain != nil {
		e.drain()
	}
	e.entityAnalyzed.Complete(nil)
}

// AbortEntity 放弃剩余请求实体的处理且不排空。
//
// 用于应用索要与响应完成相冲突的缺陷场景：连接注定关闭，
// 排空已无意义，只需放行实体分析的闸门。
func (e *Exchange) AbortEntity() {
	if !atomic.CompareAndSwapUint32(&e.entityConsumed, 0, 1) {
		return
	}
	e.entityAnalyzed.Complete(nil)
}
