//go:build unix

package console

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// peerAlive peeks at the socket without blocking or consuming data.
// A readable socket with zero bytes available means the peer closed the connection.
func (c *conn) peerAlive() bool {
	sc, ok := c.netConn.(syscall.Conn)
	if !ok {
		return true
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	alive := true
	buf := make([]byte, 1)
	// Control rather than Read: Read would queue behind a reader blocked on the same socket.
	err = raw.Control(func(fd uintptr) {
		n, _, recvErr := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case recvErr == unix.EAGAIN || recvErr == unix.EWOULDBLOCK || recvErr == unix.EINTR:
		case recvErr != nil:
			alive = false
		case n == 0:
			alive = false
		}
	})
	if err != nil {
		return false
	}
	return alive
}
