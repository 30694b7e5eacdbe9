package host

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/guseggert/interactiveservice/latch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
)

// chattyPeer always has another line to send.
type chattyPeer struct {
	reads atomic.Int64
}

func (p *chattyPeer) TryWriteLine(ctx context.Context, line string) (bool, error) {
	return false, nil
}

func (p *chattyPeer) TryReadLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p.reads.Inc()
	return "say hello", true, nil
}

func TestPumpInputStopsWhenStdinBreaks(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, stdinR.Close())
	require.NoError(t, stdinW.Close())

	peer := &chattyPeer{}
	r := &relay{
		log:      zaptest.NewLogger(t).Sugar(),
		proc:     &process{stdin: stdinW},
		endpoint: peer,
		graceful: latch.New(),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.pumpInput(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("input pump kept running after stdin failed")
	}
	assert.EqualValues(t, 1, peer.reads.Load())
}

func TestPumpInputStopsWithContext(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		stdinR.Close()
		stdinW.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	peer := &chattyPeer{}
	r := &relay{
		log:      zaptest.NewLogger(t).Sugar(),
		proc:     &process{stdin: stdinW},
		endpoint: peer,
		graceful: latch.New(),
	}
	r.pumpInput(ctx)
	assert.Zero(t, peer.reads.Load())
}
