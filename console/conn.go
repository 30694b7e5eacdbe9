package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// aLongTimeAgo is a deadline in the past, used to interrupt blocked socket I/O.
var aLongTimeAgo = time.Unix(1, 0)

// conn is one established peer connection. It is never mutated after creation;
// a reconnect replaces it with a new conn.
type conn struct {
	id      uuid.UUID
	netConn net.Conn
	reader  *bufio.Reader

	writeMut sync.Mutex
}

func newConn(c net.Conn) *conn {
	return &conn{
		id:      uuid.New(),
		netConn: c,
		reader:  bufio.NewReader(c),
	}
}

func (c *conn) remoteAddr() string {
	return c.netConn.RemoteAddr().String()
}

// interruptOnDone arranges for the deadline set by setDeadline to be moved into the past when ctx is done.
// The returned func must be called once the I/O finishes; it reports whether ctx interrupted the I/O,
// in which case the deadline has already been cleared again.
func (c *conn) interruptOnDone(ctx context.Context, setDeadline func(time.Time) error) func() bool {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = setDeadline(aLongTimeAgo)
		close(fired)
	})
	return func() bool {
		if stop() {
			return false
		}
		<-fired
		_ = setDeadline(time.Time{})
		return true
	}
}

// readLine reads a single line, without its terminator.
// If ctx is done before a line arrives, ctx.Err() is returned and the connection stays usable.
func (c *conn) readLine(ctx context.Context) (string, error) {
	done := c.interruptOnDone(ctx, c.netConn.SetReadDeadline)
	line, err := c.reader.ReadString('\n')
	interrupted := done()
	if err != nil {
		if interrupted {
			return "", ctx.Err()
		}
		// a final line without a terminator is still a line; the next read reports EOF
		if errors.Is(err, io.EOF) && line != "" {
			return trimLine(line), nil
		}
		return "", err
	}
	return trimLine(line), nil
}

// writeLine writes line followed by a newline.
func (c *conn) writeLine(ctx context.Context, line string) error {
	c.writeMut.Lock()
	defer c.writeMut.Unlock()

	done := c.interruptOnDone(ctx, c.netConn.SetWriteDeadline)
	_, err := io.WriteString(c.netConn, line+"\n")
	if done() && err != nil {
		return ctx.Err()
	}
	return err
}

func (c *conn) close() error {
	return c.netConn.Close()
}

func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// isExpectedCloseError reports whether err is an ordinary connection teardown
// rather than something worth logging loudly.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
