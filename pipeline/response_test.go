package pipeline

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	errs "github.com/favbox/ripple/common/errors"
	"github.com/favbox/ripple/common/hlog"
	"github.com/favbox/ripple/common/mock"
	"github.com/favbox/ripple/protocol"
	"github.com/favbox/ripple/protocol/consts"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

type testSubscription struct {
	requested int32
	cancelled int32
}

func (s *testSubscription) Request(n int) {
	atomic.AddInt32(&s.requested, int32(n))
}

func (s *testSubscription) Cancel() {
	atomic.AddInt32(&s.cancelled, 1)
}

type pipelineEnv struct {
	conn *mock.Conn
	ch   *Channel
	seq  *Sequencer
	ex   *Exchange
	resp *Response
}

func newPipelineEnv(req *protocol.RequestHeader) *pipelineEnv {
	if req == nil {
		req = &protocol.RequestHeader{}
	}
	conn := mock.NewConn("")
	ch := NewChannel(conn, nil)
	seq := NewSequencer()
	ex := NewExchange(req, "test-exchange")
	return &pipelineEnv{
		conn: conn,
		ch:   ch,
		seq:  seq,
		ex:   ex,
		resp: NewResponse(ch, seq, ex),
	}
}

func (e *pipelineEnv) wire(t *testing.T) string {
	t.Helper()
	return wroteString(t, e.conn)
}

func waitResolved(t *testing.T, f *Future) error {
	t.Helper()
	select {
	case <-f.Done():
		return f.Err()
	case <-time.After(time.Second):
		t.Fatal("future 未在限期内解析")
		return nil
	}
}

func TestWriteStatusAndHeadersSetOnce(t *testing.T) {
	env := newPipelineEnv(nil)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.ErrorIs(t, env.resp.WriteStatusAndHeaders(consts.StatusOK), errs.ErrHeadersSent)
	assert.ErrorIs(t, env.resp.WriteStatusAndHeaders(consts.StatusNotFound), errs.ErrHeadersSent)
}

func TestChunkedHeadersWrittenImmediately(t *testing.T) {
	env := newPipelineEnv(nil)

	// 非 200 状态不参与长度优化，标头立即以分块编码落线
	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusAccepted))
	assert.Nil(t, waitResolved(t, env.resp.HeadersFuture()))

	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 202 Accepted\r\n"))
	assert.Contains(t, wire, "Transfer-Encoding: chunked\r\n")
}

func TestLengthOptimizationSingleChunk(t *testing.T) {
	env := newPipelineEnv(nil)
	body := strings.Repeat("0123456789", 3) + "0123456"

	var resolutions int32
	env.resp.Future().OnComplete(func(error) { atomic.AddInt32(&resolutions, 1) })

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	// 优化激活期间标头按兵不动
	assert.False(t, env.resp.HeadersFuture().Completed())

	assert.Nil(t, env.resp.OnNext(NewChunk([]byte(body))))
	env.resp.OnComplete()

	assert.Nil(t, waitResolved(t, env.resp.Future()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolutions))

	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, wire, "Content-Length: 37\r\n")
	assert.NotContains(t, wire, "Transfer-Encoding")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"+body))

	// 保活连接不关闭
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, env.conn.CloseCount())
}

func TestLengthOptimizationEmptyBody(t *testing.T) {
	env := newPipelineEnv(nil)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()

	assert.Nil(t, waitResolved(t, env.resp.Future()))
	wire := env.wire(t)
	assert.Contains(t, wire, "Content-Length: 0\r\n")
	assert.NotContains(t, wire, "Transfer-Encoding")
}

func TestChunkedFallbackTwoChunks(t *testing.T) {
	env := newPipelineEnv(nil)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("hello "))))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("world"))))
	env.resp.OnComplete()

	assert.Nil(t, waitResolved(t, env.resp.Future()))
	wire := env.wire(t)
	assert.Contains(t, wire, "Transfer-Encoding: chunked\r\n")
	assert.NotContains(t, wire, "Content-Length")

	// 正文按提交顺序逐块成帧，以零长帧收尾
	headerEnd := strings.Index(wire, "\r\n\r\n") + 4
	assert.Equal(t, "6\r\nhello \r\n5\r\nworld\r\n0\r\n\r\n", wire[headerEnd:])
}

func TestCompletionIdempotent(t *testing.T) {
	env := newPipelineEnv(nil)

	var resolutions int32
	env.resp.Future().OnComplete(func(error) { atomic.AddInt32(&resolutions, 1) })

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()
	env.resp.OnComplete()
	env.resp.OnError(errors.New("too late"))

	assert.Nil(t, waitResolved(t, env.resp.Future()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolutions))
}

func TestCompletionIdempotentConcurrent(t *testing.T) {
	env := newPipelineEnv(nil)

	var resolutions int32
	env.resp.Future().OnComplete(func(error) { atomic.AddInt32(&resolutions, 1) })
	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			if i%2 == 0 {
				env.resp.OnComplete()
			} else {
				env.resp.OnError(errors.New("racing"))
			}
			return nil
		})
	}
	assert.Nil(t, g.Wait())

	waitResolved(t, env.resp.Future())
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolutions))
}

func TestConnectionCloseOnNonKeepAlive(t *testing.T) {
	bodies := map[string]func(r *Response){
		"empty": func(r *Response) {},
		"single chunk": func(r *Response) {
			_ = r.OnNext(NewChunk([]byte("payload")))
		},
		"chunked": func(r *Response) {
			_ = r.OnNext(NewChunk([]byte("part one ")))
			_ = r.OnNext(NewChunk([]byte("part two")))
		},
	}

	for name, produce := range bodies {
		t.Run(name, func(t *testing.T) {
			var req protocol.RequestHeader
			req.Set(consts.HeaderConnection, "close")
			env := newPipelineEnv(&req)

			assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
			produce(env.resp)
			env.resp.OnComplete()

			assert.Nil(t, waitResolved(t, env.resp.Future()))
			assert.Contains(t, env.wire(t), "Connection: close\r\n")
			assert.Eventually(t, func() bool {
				return env.conn.CloseCount() == 1
			}, time.Second, time.Millisecond)
		})
	}
}

func TestExplicitConnectionCloseHeaderWins(t *testing.T) {
	// 请求允许保活，但显式标头优先
	env := newPipelineEnv(nil)
	env.resp.Header().Set(consts.HeaderConnection, "close")

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()

	assert.Nil(t, waitResolved(t, env.resp.Future()))
	assert.Contains(t, env.wire(t), "Connection: close\r\n")
	assert.Eventually(t, func() bool {
		return env.conn.CloseCount() == 1
	}, time.Second, time.Millisecond)
}

func TestSyntheticErrorBeforeHeaders(t *testing.T) {
	env := newPipelineEnv(nil)
	cause := errors.New("handler exploded")

	env.resp.OnError(cause)

	assert.ErrorIs(t, waitResolved(t, env.resp.Future()), cause)
	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 500 Internal Server Error\r\n"))
	assert.Contains(t, wire, "Connection: close\r\n")
	assert.Contains(t, wire, "handler exploded")

	// 合成响应占用了标头名额
	assert.ErrorIs(t, env.resp.WriteStatusAndHeaders(consts.StatusOK), errs.ErrHeadersSent)
}

func TestSyntheticErrorDuringOptimization(t *testing.T) {
	env := newPipelineEnv(nil)
	cause := errors.New("stream source died")

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("buffered but doomed"))))
	env.resp.OnError(cause)

	assert.ErrorIs(t, waitResolved(t, env.resp.Future()), cause)
	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 500 Internal Server Error\r\n"))
	assert.NotContains(t, wire, "doomed")
}

func TestErrorAfterChunkedStart(t *testing.T) {
	env := newPipelineEnv(nil)
	cause := errors.New("backend timeout")

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("first "))))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("second"))))
	env.resp.OnError(cause)

	assert.ErrorIs(t, waitResolved(t, env.resp.Future()), cause)

	// 状态行已不可撤回，结局通过挂车标头回传
	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, wire, "Stream-Status: 500\r\n")
	assert.Contains(t, wire, "Stream-Result: backend timeout\r\n")
	assert.Less(t, strings.Index(wire, "second"), strings.Index(wire, "Stream-Status"))
	assert.Eventually(t, func() bool {
		return env.conn.CloseCount() == 1
	}, time.Second, time.Millisecond)
}

func TestWebSocketUpgradeSkipsFraming(t *testing.T) {
	env := newPipelineEnv(nil)
	env.resp.Header().Set(consts.HeaderUpgrade, "websocket")

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusSwitchingProtocols))
	assert.Nil(t, waitResolved(t, env.resp.HeadersFuture()))

	assert.Nil(t, env.resp.OnNext(NewChunk([]byte{0x81, 0x02, 'h', 'i'})))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	wire := env.wire(t)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.NotContains(t, wire, "Transfer-Encoding")
	assert.NotContains(t, wire, "Content-Length")
	// 升级后的帧原样透传
	assert.True(t, strings.HasSuffix(wire, string([]byte{0x81, 0x02, 'h', 'i'})))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, env.conn.CloseCount())
}

func TestEventStreamStaysChunked(t *testing.T) {
	env := newPipelineEnv(nil)
	env.resp.Header().SetContentType(consts.MIMEEventStream)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	// 事件流逻辑上无界，不参与长度优化
	assert.Nil(t, waitResolved(t, env.resp.HeadersFuture()))
	assert.Contains(t, env.wire(t), "Transfer-Encoding: chunked\r\n")

	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("data: ping\n\n"))))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))
}

func TestOnNextAfterCompleteRejected(t *testing.T) {
	env := newPipelineEnv(nil)
	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	c := NewChunk([]byte("late"))
	assert.ErrorIs(t, env.resp.OnNext(c), errs.ErrResponseClosed)
	_, err := c.Data()
	assert.ErrorIs(t, err, errs.ErrChunkReleased)
}

func TestSubscriptionCredit(t *testing.T) {
	env := newPipelineEnv(nil)
	sub := &testSubscription{}

	env.resp.OnSubscribe(sub)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sub.requested))

	// 多余的订阅被取消
	extra := &testSubscription{}
	env.resp.OnSubscribe(extra)
	assert.Equal(t, int32(1), atomic.LoadInt32(&extra.cancelled))
	assert.Zero(t, atomic.LoadInt32(&extra.requested))

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("x"))))
	assert.Equal(t, int32(2), atomic.LoadInt32(&sub.requested))

	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sub.cancelled))
}

func TestFlushMarkerResolvesOptimization(t *testing.T) {
	env := newPipelineEnv(nil)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("hello"))))
	// 冲刷标记要求落线，优化无从推迟
	assert.Nil(t, env.resp.OnNext(NewFlushMarker()))
	assert.Nil(t, waitResolved(t, env.resp.HeadersFuture()))

	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	wire := env.wire(t)
	assert.Contains(t, wire, "Transfer-Encoding: chunked\r\n")
	assert.Contains(t, wire, "5\r\nhello\r\n")
}

func TestFlushMarkerAloneKeepsOptimization(t *testing.T) {
	env := newPipelineEnv(nil)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, env.resp.OnNext(NewFlushMarker()))
	assert.False(t, env.resp.HeadersFuture().Completed())

	assert.Nil(t, env.resp.OnNext(NewChunk([]byte("body"))))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	// 冲刷标记不算首块，优化照常成立
	assert.Contains(t, env.wire(t), "Content-Length: 4\r\n")
}

func TestPipelinedResponsesSubmissionOrder(t *testing.T) {
	conn := mock.NewConn("")
	ch := NewChannel(conn, nil)
	seq := NewSequencer()

	r1 := NewResponse(ch, seq, NewExchange(&protocol.RequestHeader{}, "req-1"))
	r2 := NewResponse(ch, seq, NewExchange(&protocol.RequestHeader{}, "req-2"))

	// R1 处于长度优化，迟迟不落线；R2 的分块标头先行提交
	assert.Nil(t, r1.WriteStatusAndHeaders(consts.StatusOK))
	assert.Nil(t, r2.WriteStatusAndHeaders(consts.StatusAccepted))
	r2.OnComplete()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, r2.Future().Completed())

	assert.Nil(t, r1.OnNext(NewChunk([]byte("first"))))
	r1.OnComplete()

	assert.Nil(t, waitResolved(t, r1.Future()))
	assert.Nil(t, waitResolved(t, r2.Future()))

	wire := wroteString(t, conn)
	i200 := strings.Index(wire, "HTTP/1.1 200")
	i202 := strings.Index(wire, "HTTP/1.1 202")
	ibody := strings.Index(wire, "first")
	assert.GreaterOrEqual(t, i200, 0)
	assert.GreaterOrEqual(t, i202, 0)
	// R1 的全部写入先于 R2 的首笔写入
	assert.Less(t, i200, i202)
	assert.Less(t, ibody, i202)
}

func TestEntityDefectForcesClose(t *testing.T) {
	buf := &bytes.Buffer{}
	hlog.SetOutput(buf)
	defer hlog.SetOutput(os.Stderr)

	env := newPipelineEnv(nil)
	drained := 0
	env.ex.ExpectEntity(func() { drained++ })
	env.ex.MarkEntityRequested()

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	// 矛盾状态不排空实体，告警并保守关闭
	assert.Zero(t, drained)
	assert.Contains(t, buf.String(), "仍在索要请求实体")
	assert.Contains(t, env.wire(t), "Connection: close\r\n")
	assert.Eventually(t, func() bool {
		return env.conn.CloseCount() == 1
	}, time.Second, time.Millisecond)
}

func TestStreamIDCopiedToResponse(t *testing.T) {
	var req protocol.RequestHeader
	req.Set(consts.HeaderStreamID, "stream-7")
	env := newPipelineEnv(&req)

	assert.Nil(t, env.resp.WriteStatusAndHeaders(consts.StatusOK))
	env.resp.OnComplete()
	assert.Nil(t, waitResolved(t, env.resp.Future()))

	assert.Contains(t, env.wire(t), "X-Stream-ID: stream-7\r\n")
}

func TestTransportFailureFailsCompletion(t *testing.T) {
	conn := mock.NewBrokenConn("")
	ch := NewChannel(conn, nil)
	seq := NewSequencer()
	resp := NewResponse(ch, seq, NewExchange(&protocol.RequestHeader{}, "req-broken"))

	assert.Nil(t, resp.WriteStatusAndHeaders(consts.StatusOK))
	resp.OnComplete()

	assert.NotNil(t, waitResolved(t, resp.Future()))
}
