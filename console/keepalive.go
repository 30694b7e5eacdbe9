package console

import (
	"fmt"
	"net"
	"time"
)

// setKeepAlive enables TCP keep-alive. On Linux the period is used for both the
// idle time before the first probe and the interval between probes.
func setKeepAlive(c net.Conn, period time.Duration) error {
	tcpConn, ok := c.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("enabling keep-alive: %w", err)
	}
	if err := tcpConn.SetKeepAlivePeriod(period); err != nil {
		return fmt.Errorf("setting keep-alive period: %w", err)
	}
	return nil
}
