package transfer

import (
	"net"
	"time"
)

// DeadlineDialer returns a dial function for ftp.DialWithDialFunc. The
// timeout bounds the TCP connect and every individual read or write on the
// resulting connection, so a stalled control or data channel fails with a
// timeout instead of blocking forever.
func DeadlineDialer(timeout time.Duration) func(network, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	return func(network, address string) (net.Conn, error) {
		conn, err := dialer.Dial(network, address)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, timeout: timeout}, nil
	}
}

type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
