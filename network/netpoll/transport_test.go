package netpoll

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/favbox/ripple/common/config"
	"github.com/favbox/ripple/network"
	"github.com/favbox/ripple/pipeline"
	"github.com/favbox/ripple/protocol"
	"github.com/favbox/ripple/protocol/consts"
	"github.com/stretchr/testify/assert"
)

func TestTransporterServesPipelineResponse(t *testing.T) {
	const addr = "127.0.0.1:10103"
	opts := config.NewOptions([]config.Option{config.WithAddr(addr)})
	tr := NewTransporter(opts)

	go func() {
		_ = tr.ListenAndServe(func(ctx context.Context, conn network.Conn) error {
			_ = conn.Skip(conn.Len())

			ch := pipeline.NewChannel(conn, opts)
			seq := pipeline.NewSequencer()
			ex := pipeline.NewExchange(&protocol.RequestHeader{}, "it-1")
			resp := pipeline.NewResponse(ch, seq, ex)

			if err := resp.WriteStatusAndHeaders(consts.StatusOK); err != nil {
				return err
			}
			_ = resp.OnNext(pipeline.NewChunk([]byte("hello")))
			resp.OnComplete()
			<-resp.Future().Done()
			return resp.Future().Err()
		})
	}()
	defer tr.Close()

	var conn network.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = NewDialer().DialConnection("tcp", addr, time.Second)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Nil(t, err)

	_, err = conn.WriteBinary([]byte("GET / HTTP/1.1\r\nHost: t\r\n\r\n"))
	assert.Nil(t, err)
	assert.Nil(t, conn.Flush())

	// 轮询读取直到响应连同正文到齐
	var got string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n := conn.Len(); n > 0 {
			b, perr := conn.Peek(n)
			assert.Nil(t, perr)
			got = string(b)
			if strings.HasSuffix(got, "hello") {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, got, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nhello"))
}
