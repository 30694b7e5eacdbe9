package console

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/guseggert/interactiveservice/internal/ctxutil"
)

// Client dials a Server and keeps redialing whenever the connection is lost.
//
// ReadLine and WriteLine block while disconnected and never return errors;
// callers are expected to simply keep calling them.
type Client struct {
	*link

	addr          string
	dialer        net.Dialer
	retryInterval time.Duration

	startOnce sync.Once
}

func NewClient(host string, port int, opts ...Option) (*Client, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return &Client{
		link:          newLink(o.logger.Named("console_client").Sugar(), o.probeInterval),
		addr:          net.JoinHostPort(host, strconv.Itoa(port)),
		dialer:        net.Dialer{KeepAlive: o.keepAlivePeriod},
		retryInterval: o.retryInterval,
	}, nil
}

// Start launches the background dial and liveness loops. Calling it more than once has no effect.
func (c *Client) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(2)
		go c.probe()
		go c.run()
	})
}

func (c *Client) run() {
	defer c.wg.Done()
	c.log.Infof("trying to connect to interactive service host @ %s...", c.addr)
	for c.ctx.Err() == nil {
		netConn, err := c.dialer.DialContext(c.ctx, "tcp", c.addr)
		if err != nil {
			c.log.Debugf("dial error: %s", err)
			c.signalConnection(false)
			ctxutil.Sleep(c.ctx, c.retryInterval)
			continue
		}

		cn := newConn(netConn)
		c.attach(cn)
		c.log.Infow("connected to interactive service host", "Addr", c.addr, "ConnID", cn.id)

		err = c.disconnected.Wait(c.ctx)
		c.detach(cn)
		if err != nil {
			return
		}
		c.log.Infof("disconnected from interactive service host @ %s, reconnecting...", c.addr)
		ctxutil.Sleep(c.ctx, c.retryInterval)
	}
}

// Connected returns a channel that is closed once a connection is established.
// The channel belongs to the current connection state; call it again after a disconnect.
func (c *Client) Connected() <-chan struct{} {
	return c.connected.Done()
}

// ReadLine waits for a connection and reads one line from it.
// It returns false if ctx is done, the client is closed, or the read failed.
func (c *Client) ReadLine(ctx context.Context) (string, bool) {
	ctx, cancel := ctxutil.Merge(ctx, c.ctx)
	defer cancel()

	cn, err := c.waitConn(ctx)
	if err != nil || cn == nil {
		return "", false
	}
	line, err := cn.readLine(ctx)
	if err != nil {
		if ctx.Err() == nil {
			if !isExpectedCloseError(err) {
				c.log.Debugw("read failed", "ConnID", cn.id, "Error", err)
			}
			c.drop(cn, "read failed")
		}
		return "", false
	}
	return line, true
}

// WriteLine waits for a connection and writes line to it.
// Failures are logged and otherwise ignored.
func (c *Client) WriteLine(ctx context.Context, line string) {
	ctx, cancel := ctxutil.Merge(ctx, c.ctx)
	defer cancel()

	cn, err := c.waitConn(ctx)
	if err != nil || cn == nil {
		c.log.Debugw("dropping line, not connected", "Error", err)
		return
	}
	err = cn.writeLine(ctx, line)
	if err != nil {
		c.log.Debugw("write failed", "ConnID", cn.id, "Error", err)
		if ctx.Err() == nil {
			c.drop(cn, "write failed")
		}
	}
}

// Close stops redialing and disconnects.
func (c *Client) Close() error {
	c.close()
	return nil
}
