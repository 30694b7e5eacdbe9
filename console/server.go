package console

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/guseggert/interactiveservice/internal/ctxutil"
	"go.uber.org/atomic"
)

// Server accepts one peer at a time on a TCP address and exchanges lines with it.
type Server struct {
	*link

	addr            string
	bound           *atomic.String
	retryInterval   time.Duration
	keepAlivePeriod time.Duration
}

// NewServer starts listening on addr in the background and returns immediately.
// The listener is only open while no peer is attached.
func NewServer(addr string, opts ...Option) (*Server, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	s := &Server{
		link:            newLink(o.logger.Named("console_server").Sugar(), o.probeInterval),
		addr:            addr,
		bound:           atomic.NewString(""),
		retryInterval:   o.retryInterval,
		keepAlivePeriod: o.keepAlivePeriod,
	}
	s.wg.Add(2)
	go s.run()
	go s.probe()
	return s, nil
}

func (s *Server) run() {
	defer s.wg.Done()
	// only the first of consecutive failures is a warning, retries are at debug
	failing := false
	for s.ctx.Err() == nil {
		err := s.serveOne()
		if err == nil {
			failing = false
			continue
		}
		if s.ctx.Err() != nil {
			return
		}
		if failing {
			s.log.Debugf("failed to establish connection: %s", err)
		} else {
			s.log.Warnf("failed to establish connection, retrying every %s: %s", s.retryInterval, err)
		}
		failing = true
		s.signalConnection(false)
		ctxutil.Sleep(s.ctx, s.retryInterval)
	}
}

// serveOne accepts a single peer and blocks until it is gone.
func (s *Server) serveOne() error {
	c, err := s.acceptOne()
	if err != nil {
		return err
	}
	defer s.detach(c)

	s.log.Infow("peer connected", "Peer", c.remoteAddr(), "ConnID", c.id)
	s.attach(c)

	if err := s.disconnected.Wait(s.ctx); err != nil {
		return nil
	}
	s.log.Infow("peer disconnected", "Peer", c.remoteAddr(), "ConnID", c.id)
	return nil
}

func (s *Server) acceptOne() (*conn, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(s.ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.bound.Store(listener.Addr().String())
	stop := context.AfterFunc(s.ctx, func() { listener.Close() })
	defer stop()

	s.log.Debugw("waiting for peer", "Addr", listener.Addr().String())
	netConn, err := listener.Accept()
	// stop listening as soon as we have a peer, so further attempts are refused
	listener.Close()
	if err != nil {
		return nil, fmt.Errorf("accepting peer: %w", err)
	}

	if err := setKeepAlive(netConn, s.keepAlivePeriod); err != nil {
		netConn.Close()
		return nil, err
	}
	return newConn(netConn), nil
}

// TryWriteLine sends line to the attached peer.
// It returns false without an error if no peer is attached or the write failed; the failure
// marks the peer as disconnected. An error is returned only when ctx or the server is done.
func (s *Server) TryWriteLine(ctx context.Context, line string) (bool, error) {
	if !s.connected.IsSet() {
		return false, nil
	}
	c := s.current.Load()
	if c == nil {
		return false, nil
	}

	ctx, cancel := ctxutil.Merge(ctx, s.ctx)
	defer cancel()

	err := c.writeLine(ctx, line)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if !isExpectedCloseError(err) {
		s.log.Debugw("write to peer failed", "ConnID", c.id, "Error", err)
	}
	s.drop(c, "write failed")
	return false, nil
}

// TryReadLine waits for a peer and reads one line from it.
// It returns false without an error if the peer went away; an error is returned only when ctx or the server is done.
func (s *Server) TryReadLine(ctx context.Context) (string, bool, error) {
	ctx, cancel := ctxutil.Merge(ctx, s.ctx)
	defer cancel()

	c, err := s.waitConn(ctx)
	if err != nil {
		return "", false, err
	}
	if c == nil {
		return "", false, nil
	}

	line, err := c.readLine(ctx)
	if err == nil {
		return line, true, nil
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	if !isExpectedCloseError(err) {
		s.log.Debugw("read from peer failed", "ConnID", c.id, "Error", err)
	}
	s.drop(c, "read failed")
	return "", false, nil
}

// PeerAddr returns the address of the attached peer, or "" if there is none.
func (s *Server) PeerAddr() string {
	c := s.current.Load()
	if c == nil || !s.connected.IsSet() {
		return ""
	}
	return c.remoteAddr()
}

// Addr returns the address of the most recently opened listener, or the configured
// address if none has been opened yet. With port 0 it changes on every listen cycle.
func (s *Server) Addr() string {
	if bound := s.bound.Load(); bound != "" {
		return bound
	}
	return s.addr
}

// Close stops listening, disconnects the peer and waits for the background loops to exit.
func (s *Server) Close() error {
	s.close()
	return nil
}
