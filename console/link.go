package console

import (
	"context"
	"sync"
	"time"

	"github.com/guseggert/interactiveservice/internal/ctxutil"
	"github.com/guseggert/interactiveservice/latch"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// link holds the connection state shared by Server and Client.
// Only the owning accept/dial loop attaches connections; anyone may report
// the current connection as lost.
type link struct {
	log *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	connected    *latch.Latch
	disconnected *latch.Latch

	current *atomic.Pointer[conn]
	alive   *atomic.Bool

	probeInterval time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newLink(log *zap.SugaredLogger, probeInterval time.Duration) *link {
	ctx, cancel := context.WithCancel(context.Background())
	l := &link{
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
		connected:     latch.New(),
		disconnected:  latch.New(),
		current:       atomic.NewPointer[conn](nil),
		alive:         atomic.NewBool(false),
		probeInterval: probeInterval,
	}
	l.disconnected.Set()
	return l
}

func (l *link) signalConnection(isConnected bool) {
	l.alive.Store(isConnected)
	if isConnected {
		l.connected.Set()
		l.disconnected.Reset()
	} else {
		l.connected.Reset()
		l.disconnected.Set()
	}
}

// attach publishes c as the current connection and wakes everyone waiting for a peer.
func (l *link) attach(c *conn) {
	l.current.Store(c)
	l.signalConnection(true)
}

// detach closes c and clears it if it is still the current connection.
func (l *link) detach(c *conn) {
	l.current.CompareAndSwap(c, nil)
	if err := c.close(); err != nil && !isExpectedCloseError(err) {
		l.log.Debugw("error closing connection", "ConnID", c.id, "Error", err)
	}
}

// drop reports c as lost. Reports about a connection that has already been
// replaced are ignored, so a late failure on a stale connection cannot tear down its successor.
func (l *link) drop(c *conn, reason string) {
	if l.current.Load() != c {
		return
	}
	l.log.Debugw("connection lost", "ConnID", c.id, "Reason", reason)
	l.signalConnection(false)
}

// waitConn blocks until a connection is attached.
// It returns nil without error if the connection vanished between the wake-up and the load.
func (l *link) waitConn(ctx context.Context) (*conn, error) {
	if err := l.connected.Wait(ctx); err != nil {
		return nil, err
	}
	return l.current.Load(), nil
}

// probe runs until the link is closed, checking the peer of each attached connection every probeInterval.
func (l *link) probe() {
	defer l.wg.Done()
	for {
		if err := l.connected.Wait(l.ctx); err != nil {
			return
		}
		c := l.current.Load()
		if c != nil {
			alive := c.peerAlive()
			l.alive.Store(alive)
			if !alive {
				l.drop(c, "liveness probe failed")
				continue
			}
		}
		if !ctxutil.Sleep(l.ctx, l.probeInterval) {
			return
		}
	}
}

// IsConnected reports whether a peer is attached, as of the latest state change or probe.
func (l *link) IsConnected() bool {
	return l.alive.Load()
}

// WaitConnected blocks until a peer is attached or ctx is done.
func (l *link) WaitConnected(ctx context.Context) error {
	ctx, cancel := ctxutil.Merge(ctx, l.ctx)
	defer cancel()
	return l.connected.Wait(ctx)
}

func (l *link) close() {
	l.closeOnce.Do(func() {
		l.cancel()
		if c := l.current.Load(); c != nil {
			l.signalConnection(false)
			l.detach(c)
		}
		l.wg.Wait()
		l.connected.Close()
		l.disconnected.Close()
	})
}
