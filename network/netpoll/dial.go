package netpoll

import (
	"time"

	"github.com/cloudwego/netpoll"
	"github.com/favbox/ripple/network"
)

type dialer struct {
	netpoll.Dialer
}

func (d dialer) DialConnection(nw, address string, timeout time.Duration) (conn network.Conn, err error) {
	connection, err := d.Dialer.DialConnection(nw, address, timeout)
	if err != nil {
		return nil, err
	}

	conn = newConn(connection)
	return
}

// NewDialer 创建基于 netpoll 的拨号器。
func NewDialer() network.Dialer {
	return dialer{Dialer: netpoll.NewDialer()}
}
