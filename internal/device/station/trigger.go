package station

import (
	"context"
	"fmt"
	"net"
	"time"

	"smartbin/pkg/errorutil"
)

// Client 传感站触发客户端，每次调用新建连接，发完即关
type Client struct {
	addr        string
	dialTimeout time.Duration
}

// NewClient 创建触发客户端
func NewClient(addr string, dialTimeout time.Duration) *Client {
	return &Client{addr: addr, dialTimeout: dialTimeout}
}

// Trigger 发送命令（分类名或 check:<分类>），不等待测量结果
func (c *Client) Trigger(ctx context.Context, command string) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errorutil.Device("station dial "+c.addr, err)
	}
	defer conn.Close()

	if c.dialTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.dialTimeout))
	}
	if _, err := conn.Write([]byte(command)); err != nil {
		return errorutil.Device(fmt.Sprintf("station send %q", command), err)
	}
	return nil
}
