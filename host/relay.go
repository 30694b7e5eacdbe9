package host

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/guseggert/interactiveservice/latch"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// lineEndpoint is the peer side of the relay, implemented by *console.Server.
type lineEndpoint interface {
	TryWriteLine(ctx context.Context, line string) (bool, error)
	TryReadLine(ctx context.Context) (string, bool, error)
}

// relay pumps lines between a process and the attached peer.
type relay struct {
	log      *zap.SugaredLogger
	proc     *process
	endpoint lineEndpoint

	// stopMessage is the line that means the process is shutting down gracefully.
	stopMessage string
	// graceful is set when stopMessage is seen after the stop was requested.
	graceful *latch.Latch
}

// run blocks until both pumps are done. The input pump stops when stopCtx is done,
// the output pump when the process closes its stdout.
func (r *relay) run(stopCtx context.Context) {
	var group errgroup.Group
	group.Go(func() error {
		r.pumpOutput(stopCtx)
		return nil
	})
	group.Go(func() error {
		r.pumpInput(stopCtx)
		return nil
	})
	_ = group.Wait()
}

// pumpOutput forwards process stdout to the peer. Lines are dropped while no peer is attached.
func (r *relay) pumpOutput(stopCtx context.Context) {
	reader := bufio.NewReader(r.proc.stdout)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			switch {
			case errors.Is(err, io.EOF):
				r.log.Info("received EOF from process")
			case errors.Is(err, os.ErrClosed):
				r.log.Debug("process stdout closed")
			default:
				r.log.Warnf("error reading process stdout: %s", err)
			}
			return
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		r.log.Debugf("<< %s", line)
		if _, err := r.endpoint.TryWriteLine(context.Background(), line); err != nil {
			r.log.Debugf("error forwarding process output: %s", err)
		}

		if stopCtx.Err() != nil && r.stopMessage != "" && line == r.stopMessage {
			r.graceful.Set()
		}
	}
}

// pumpInput forwards lines from the peer to process stdin until stopCtx is done or stdin breaks.
func (r *relay) pumpInput(stopCtx context.Context) {
	for stopCtx.Err() == nil {
		line, ok, err := r.endpoint.TryReadLine(stopCtx)
		if err != nil {
			r.log.Debugf("stopped reading from peer: %s", err)
			return
		}
		if !ok {
			r.log.Info("received EOF from peer")
			continue
		}

		r.log.Debugf(">> %s", line)
		if err := r.proc.writeLine(line); err != nil {
			r.log.Warnf("error writing to process stdin, no longer relaying input: %s", err)
			return
		}
	}
}
