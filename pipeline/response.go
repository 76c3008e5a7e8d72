package pipeline

import (
	"strconv"
	"sync"
	"sync/atomic"

	errs "github.com/favbox/ripple/common/errors"
	"github.com/favbox/ripple/common/hlog"
	"github.com/favbox/ripple/common/json"
	"github.com/favbox/ripple/common/utils"
	"github.com/favbox/ripple/internal/bytesconv"
	"github.com/favbox/ripple/internal/bytestr"
	"github.com/favbox/ripple/network"
	"github.com/favbox/ripple/protocol"
	"github.com/favbox/ripple/protocol/consts"
)

// Subscription 是响应正文生产者的信用凭证。
//
// 状态机一次只索要一个单位的数据，完成或出错时取消订阅。
type Subscription interface {
	Request(n int)
	Cancel()
}

// Response 管理单个 HTTP 交换的响应生命周期。
//
// 状态走向：创建 → 标头已发送 → （流式写出）* → 已完成，
// 任意时刻可被错误吸收。closed 是内部守卫而非外部可见状态。
//
// 正文生产者是单一且顺序的：OnNext、OnError、OnComplete 来自同一
// 生产者的串行调用；statusHeadersSent 与 closed 两个原子量是状态机
// 仅有的跨协程同步点。
type Response struct {
	ch  *Channel
	seq *Sequencer
	ex  *Exchange

	header protocol.ResponseHeader

	statusHeadersSent uint32
	closed            uint32
	subscribed        uint32

	// 以下字段只被串行的生产者调用路径触碰。
	lengthOptimization bool
	chunked            bool
	upgraded           bool
	connClose          bool
	firstChunk         *Chunk
	sub                Subscription

	// 本响应的内部待写链，种子是前一个响应的提交完毕信号。
	writeMu sync.Mutex
	tail    *Future

	submitted        *Future
	headersFuture    *Future
	completionFuture *Future
}

// NewResponse 为一次交换创建响应状态机。
//
// 创建即在连接的待写链上占位：本响应的首笔写入要等前一个响应的
// 全部写入提交完毕，流水线化响应因此严格按序落线。
func NewResponse(ch *Channel, seq *Sequencer, ex *Exchange) *Response {
	r := &Response{
		ch:               ch,
		seq:              seq,
		ex:               ex,
		submitted:        NewFuture(),
		headersFuture:    NewFuture(),
		completionFuture: NewFuture(),
	}
	r.tail = seq.Reserve(r.submitted)
	return r
}

// orderedWrite 把写入动作挂到本响应的待写链尾。
//
// action 返回代表本次提交的 Future，下一个动作在其完成后才执行。
func (r *Response) orderedWrite(action func() *Future) *Future {
	next := NewFuture()
	r.writeMu.Lock()
	prev := r.tail
	r.tail = next
	r.writeMu.Unlock()

	prev.OnComplete(func(error) {
		f := action()
		if f == nil {
			next.Complete(nil)
			return
		}
		f.OnComplete(func(err error) {
			next.Complete(err)
		})
	})
	return next
}

// Header 返回待发送的响应标头，供处理器在写出前组装。
func (r *Response) Header() *protocol.ResponseHeader {
	return &r.header
}

// HeadersFuture 返回标头落线的完成信号。
func (r *Response) HeadersFuture() *Future {
	return r.headersFuture
}

// Future 返回整个响应的完成信号，恰好解析一次。
func (r *Response) Future() *Future {
	return r.completionFuture
}

// WriteStatusAndHeaders 发送状态码与标头，每个响应只允许调用一次。
//
// 非升级且未显式声明内容长度时，暂定分块传输；状态码为 200 且非事件流
// 的响应会进入长度优化路径，推迟标头落线，待首个数据块揭晓整个正文能否
// 一次装下，从而改用 Content-Length 省去分块帧。
func (r *Response) WriteStatusAndHeaders(statusCode int) error {
	if !atomic.CompareAndSwapUint32(&r.statusHeadersSent, 0, 1) {
		return errs.ErrHeadersSent
	}

	r.header.SetStatusCode(statusCode)
	if sid := r.ex.StreamID(); len(sid) > 0 {
		r.header.SetCanonical(bytesconv.S2b(consts.HeaderStreamID), sid)
	}

	switch {
	case r.header.IsWebSocketUpgrade():
		r.upgraded = true
	case !r.header.ContentLengthSet():
		r.chunked = true
		if r.header.StatusCode() == consts.StatusOK && !r.header.IsEventStream() {
			r.lengthOptimization = true
		} else {
			r.header.SetContentLength(-1)
		}
	}

	r.decideConnection()

	if !r.lengthOptimization {
		r.initWriteResponse(true)
	}
	return nil
}

// decideConnection 决定响应完成后复用还是关闭连接。
//
// 显式的 Connection: close 标头优先于请求侧的保活意愿。复用前请求实体
// 必须被排空；应用仍在索要实体数据却已开始写响应时，视作处理器缺陷，
// 告警并保守地关闭连接，避免猜测应用意图而破坏帧边界。
func (r *Response) decideConnection() {
	if r.upgraded {
		return
	}
	switch {
	case r.header.ConnectionClose():
		r.connClose = true
		r.ex.Drain()
	case !r.ex.KeepAlive():
		r.connClose = true
		r.header.SetConnectionClose(true)
		r.ex.Drain()
	case !r.ex.EntityConsumed():
		if r.ex.EntityRequested() {
			hlog.SystemLogger().Warnf("交换 %s：应用仍在索要请求实体却已开始写响应，连接 %s 将被关闭",
				r.ex.CorrelationID(), r.ch.ID())
			r.connClose = true
			r.header.SetConnectionClose(true)
			r.ex.AbortEntity()
			return
		}
		r.ex.Drain()
	}
}

// initWriteResponse 把标头写入挂到有序链上，并以请求实体分析完毕为闸。
func (r *Response) initWriteResponse(flush bool) *Future {
	f := r.orderedWrite(func() *Future {
		gate := NewFuture()
		r.ex.EntityAnalyzed().OnComplete(func(err error) {
			if err != nil {
				gate.Complete(err)
				return
			}
			r.ch.Write(flush, r.header.Header()).OnComplete(func(werr error) {
				gate.Complete(werr)
			})
		})
		return gate
	})
	f.OnComplete(func(err error) {
		r.headersFuture.Complete(err)
	})
	return f
}

// OnSubscribe 接受正文生产者的订阅，多余的订阅被取消。
func (r *Response) OnSubscribe(s Subscription) {
	if !atomic.CompareAndSwapUint32(&r.subscribed, 0, 1) {
		s.Cancel()
		return
	}
	r.sub = s
	s.Request(1)
}

// OnNext 接收生产者的下一个正文数据块。
//
// 冲刷标记只传播冲刷信号，不计入正文；长度优化激活时首个数据块先被
// 缓冲，第二个数据块的到来证明正文装不进单块，优化随即回退为分块。
func (r *Response) OnNext(c *Chunk) error {
	if atomic.LoadUint32(&r.closed) == 1 {
		c.Release()
		return errs.ErrResponseClosed
	}

	if c.IsFlushMarker() {
		c.Release()
		if r.lengthOptimization {
			// 用户要求落线，优化路径无从推迟，提前回退为分块
			if r.firstChunk != nil {
				r.abandonOptimization(true)
			}
		} else {
			r.submitFlush()
		}
		r.requestMore()
		return nil
	}

	if r.lengthOptimization {
		if r.firstChunk == nil {
			r.firstChunk = c
			r.requestMore()
			return nil
		}
		r.abandonOptimization(false)
	}

	r.writeChunk(c, true)
	r.requestMore()
	return nil
}

// OnError 以错误完成响应。重复完成是空操作。
func (r *Response) OnError(err error) {
	r.complete(err)
}

// OnComplete 正常完成响应。重复完成是空操作。
func (r *Response) OnComplete() {
	r.complete(nil)
}

// abandonOptimization 放弃长度优化：标头以分块编码落线，
// 已缓冲的首块随后写出。
func (r *Response) abandonOptimization(flush bool) {
	r.lengthOptimization = false
	r.header.SetContentLength(-1)

	first := r.firstChunk
	r.firstChunk = nil

	r.initWriteResponse(first == nil && flush)
	if first != nil {
		r.writeChunk(first, flush)
	}
}

// writeChunk 把数据块按当前编码写出，分块模式下附带长度帧。
func (r *Response) writeChunk(c *Chunk, flush bool) *Future {
	var f *Future
	if r.chunked && !r.upgraded {
		f = r.orderedWrite(func() *Future {
			return r.ch.Submit(func(conn network.Conn) error {
				defer c.Release()
				data, err := c.Data()
				if err != nil {
					return err
				}
				// 空块不能写长度帧，否则会提前终结分块流
				if len(data) == 0 {
					if flush {
						return conn.Flush()
					}
					return nil
				}
				if err = bytesconv.WriteHexInt(conn, len(data)); err != nil {
					return err
				}
				if _, err = conn.WriteBinary(bytestr.StrCRLF); err != nil {
					return err
				}
				if _, err = conn.WriteBinary(data); err != nil {
					return err
				}
				if _, err = conn.WriteBinary(bytestr.StrCRLF); err != nil {
					return err
				}
				if flush {
					return conn.Flush()
				}
				return nil
			})
		})
	} else {
		f = r.orderedWrite(func() *Future {
			return r.ch.WriteChunk(flush, c)
		})
	}
	f.OnComplete(func(err error) {
		if err != nil {
			r.complete(err)
		}
	})
	return f
}

func (r *Response) submitFlush() {
	r.orderedWrite(func() *Future {
		return r.ch.Flush()
	})
}

func (r *Response) requestMore() {
	if r.sub != nil && atomic.LoadUint32(&r.closed) == 0 {
		r.sub.Request(1)
	}
}

// complete 是所有完成路径汇聚的内部例程，恰好生效一次。
func (r *Response) complete(cause error) {
	if !atomic.CompareAndSwapUint32(&r.closed, 0, 1) {
		return
	}
	if r.sub != nil {
		r.sub.Cancel()
	}

	headersUnsent := atomic.CompareAndSwapUint32(&r.statusHeadersSent, 0, 1)

	switch {
	case cause != nil && (headersUnsent || r.lengthOptimization):
		// 标头尚未落线，还来得及改发错误状态
		r.completeSyntheticError(cause)
	case headersUnsent || r.lengthOptimization:
		if headersUnsent {
			r.lengthOptimization = true
			r.chunked = true
			r.decideConnection()
		}
		r.completeOptimized()
	case r.chunked && !r.upgraded:
		r.completeChunked(cause)
	default:
		r.completeRaw(cause)
	}
}

// completeOptimized 收官长度优化路径：至多一个数据块，内容长度可知，
// 标头连同正文一次落线，免去分块帧。
func (r *Response) completeOptimized() {
	first := r.firstChunk
	r.firstChunk = nil

	n := 0
	if first != nil {
		n = first.Len()
	}
	r.chunked = false
	r.header.SetContentLength(n)

	f := r.orderedWrite(func() *Future {
		gate := NewFuture()
		r.ex.EntityAnalyzed().OnComplete(func(err error) {
			if err != nil {
				if first != nil {
					first.Release()
				}
				gate.Complete(err)
				return
			}
			r.ch.Submit(func(conn network.Conn) error {
				if _, err := conn.WriteBinary(r.header.Header()); err != nil {
					return err
				}
				if first != nil {
					defer first.Release()
					data, derr := first.Data()
					if derr != nil {
						return derr
					}
					if _, err := conn.WriteBinary(data); err != nil {
						return err
					}
				}
				return conn.Flush()
			}).OnComplete(func(werr error) {
				gate.Complete(werr)
			})
		})
		return gate
	})
	f.OnComplete(func(err error) {
		r.headersFuture.Complete(err)
	})
	r.finish(f, nil)
}

// completeChunked 写出分块流的结束帧。
//
// 出错时状态行已不可撤回，只能靠挂车标头回传流的结局。
func (r *Response) completeChunked(cause error) {
	if cause != nil {
		tr := r.header.Trailer()
		_ = tr.Set(consts.HeaderStreamStatus, strconv.Itoa(consts.StatusInternalServerError))
		_ = tr.Set(consts.HeaderStreamResult, cause.Error())
		r.connClose = true
	}

	f := r.orderedWrite(func() *Future {
		return r.ch.Submit(func(conn network.Conn) error {
			tr := r.header.Trailer()
			if tr.Empty() {
				if _, err := conn.WriteBinary(bytestr.StrTerminatingChunk); err != nil {
					return err
				}
			} else {
				if _, err := conn.WriteBinary(bytestr.StrTerminatingChunkTrailer); err != nil {
					return err
				}
				if _, err := conn.WriteBinary(tr.Header()); err != nil {
					return err
				}
			}
			return conn.Flush()
		})
	})
	r.finish(f, cause)
}

// completeRaw 收官定长或升级响应：没有终结帧，只需冲刷。
func (r *Response) completeRaw(cause error) {
	if cause != nil {
		r.connClose = true
	}
	f := r.orderedWrite(func() *Future {
		return r.ch.Flush()
	})
	r.finish(f, cause)
}

// completeSyntheticError 在标头尚未落线时合成错误响应。
func (r *Response) completeSyntheticError(cause error) {
	if r.firstChunk != nil {
		r.firstChunk.Release()
		r.firstChunk = nil
	}
	r.lengthOptimization = false
	r.chunked = false
	r.connClose = true
	r.ex.Drain()

	body, _ := json.Marshal(utils.H{
		"status": consts.StatusInternalServerError,
		"error":  cause.Error(),
	})

	r.header.Reset()
	r.header.SetStatusCode(consts.StatusInternalServerError)
	r.header.SetContentType(consts.MIMEApplicationJSON)
	r.header.SetContentLength(len(body))
	r.header.SetConnectionClose(true)

	f := r.orderedWrite(func() *Future {
		return r.ch.Submit(func(conn network.Conn) error {
			if _, err := conn.WriteBinary(r.header.Header()); err != nil {
				return err
			}
			if _, err := conn.WriteBinary(body); err != nil {
				return err
			}
			return conn.Flush()
		})
	})
	f.OnComplete(func(err error) {
		r.headersFuture.Complete(err)
	})
	r.finish(f, cause)
}

// finish 在终笔写入提交后解析完成信号，并执行关闭或复用的连接动作。
//
// 传输层写入失败会顶替生产者错误成为完成结果，并强制关闭连接。
func (r *Response) finish(f *Future, cause error) {
	f.OnComplete(func(werr error) {
		err := cause
		if werr != nil {
			err = werr
			r.connClose = true
		}
		// 本响应的写入至此全部提交，放行流水线上的下一个响应
		r.submitted.Complete(werr)
		r.completionFuture.Complete(err)
		if r.connClose {
			r.ch.Close()
		} else {
			r.ch.Read()
		}
	})
}
