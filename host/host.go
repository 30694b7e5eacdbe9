package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/guseggert/interactiveservice/console"
	"github.com/guseggert/interactiveservice/latch"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	ErrAlreadyStarted = errors.New("host is already started")
	ErrNotStarted     = errors.New("host is not started")
)

// peerMessagePrefix marks lines that come from the host rather than from the process.
const peerMessagePrefix = "[host] "

const (
	// drainTimeout bounds how long process output is still relayed after the process is gone.
	drainTimeout = 1 * time.Second
	// peerMessageTimeout bounds delivery of a host message to a slow peer.
	peerMessageTimeout = 1 * time.Second
)

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopping
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StopReason tells how the hosted process ended.
type StopReason int

const (
	StopReasonNone StopReason = iota
	// StopReasonExited means the process exited on its own, without a stop request.
	StopReasonExited
	// StopReasonStopMessage means the process printed the stop message after the stop command.
	StopReasonStopMessage
	// StopReasonStoppedByHost means the process exited after being sent the stop command.
	StopReasonStoppedByHost
	// StopReasonKilled means the process was killed.
	StopReasonKilled
)

func (r StopReason) String() string {
	switch r {
	case StopReasonNone:
		return "none"
	case StopReasonExited:
		return "exited"
	case StopReasonStopMessage:
		return "stop message"
	case StopReasonStoppedByHost:
		return "stopped by host"
	case StopReasonKilled:
		return "killed"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Host runs a single child process and exposes its stdio to one remote peer at a time.
// A Host runs at most once: after it stops it cannot be started again.
type Host struct {
	log            *zap.SugaredLogger
	logLevel       *zapcore.Level
	tracker        Tracker
	consoleOptions []console.Option

	mut        sync.Mutex
	state      state
	stopReason StopReason
	cancel     context.CancelFunc
	proc       *process
	server     *console.Server
	stopped    *latch.Latch
}

type Option func(h *Host)

func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		h.log = l.Named("host").Sugar()
	}
}

// WithLogLevel raises the minimum level of the host's logger, whichever logger is used.
func WithLogLevel(l zapcore.Level) Option {
	return func(h *Host) {
		h.logLevel = &l
	}
}

// WithTracker registers every started process with t.
func WithTracker(t Tracker) Option {
	return func(h *Host) {
		h.tracker = t
	}
}

// WithConsoleOptions passes options through to the console server.
func WithConsoleOptions(opts ...console.Option) Option {
	return func(h *Host) {
		h.consoleOptions = append(h.consoleOptions, opts...)
	}
}

func New(opts ...Option) (*Host, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	h := &Host{
		log:     logger.Named("host").Sugar(),
		stopped: latch.New(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.logLevel != nil {
		h.log = h.log.WithOptions(zap.IncreaseLevel(*h.logLevel))
	}
	return h, nil
}

// Start launches the process and the console server and returns immediately.
func (h *Host) Start(cfg Config) error {
	return h.StartContext(context.Background(), cfg)
}

// StartContext is like Start, but the host also stops when ctx is done.
func (h *Host) StartContext(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	h.mut.Lock()
	defer h.mut.Unlock()
	if h.state != stateIdle {
		return ErrAlreadyStarted
	}

	proc, err := startProcess(cfg)
	if err != nil {
		return fmt.Errorf("starting process %q: %w", cfg.Executable, err)
	}
	h.log.Infow("process started", "PID", proc.pid(), "Executable", cfg.Executable, "Args", cfg.Args, "WD", cfg.workingDir())

	if h.tracker != nil {
		if err := h.tracker.Track(proc.cmd.Process); err != nil {
			h.log.Warnf("error tracking process %d: %s", proc.pid(), err)
		}
	}

	opts := append([]console.Option{console.WithLogger(h.log.Desugar())}, h.consoleOptions...)
	server, err := console.NewServer(cfg.listenAddr(), opts...)
	if err != nil {
		_ = proc.kill()
		_ = proc.close()
		return fmt.Errorf("starting console server: %w", err)
	}

	var status *http.Server
	if cfg.StatusAddr != "" {
		status, err = h.serveStatus(cfg.StatusAddr)
		if err != nil {
			_ = proc.kill()
			_ = proc.close()
			_ = server.Close()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.proc = proc
	h.server = server
	h.state = stateRunning

	go h.run(runCtx, cfg, proc, server, status)
	return nil
}

// Run starts the host and blocks until it has stopped, either because ctx is done or the process exited.
func (h *Host) Run(ctx context.Context, cfg Config) error {
	if err := h.StartContext(ctx, cfg); err != nil {
		return err
	}
	return h.Wait()
}

// Stop requests shutdown. It does not wait; use Wait for that.
// Stopping a host that is not running has no effect.
func (h *Host) Stop() {
	h.mut.Lock()
	defer h.mut.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// Wait blocks until the host has stopped.
func (h *Host) Wait() error {
	return h.WaitContext(context.Background())
}

// WaitContext blocks until the host has stopped or ctx is done.
func (h *Host) WaitContext(ctx context.Context) error {
	h.mut.Lock()
	st := h.state
	h.mut.Unlock()
	if st == stateIdle {
		return ErrNotStarted
	}
	return h.stopped.Wait(ctx)
}

// StopReason reports how the process ended. It is StopReasonNone until the host has stopped.
func (h *Host) StopReason() StopReason {
	h.mut.Lock()
	defer h.mut.Unlock()
	return h.stopReason
}

func (h *Host) setState(s state) {
	h.mut.Lock()
	defer h.mut.Unlock()
	h.state = s
}

func (h *Host) run(runCtx context.Context, cfg Config, proc *process, server *console.Server, status *http.Server) {
	stopCtx, stop := context.WithCancel(runCtx)
	defer stop()

	// the process exiting on its own also counts as a stop request
	go func() {
		select {
		case <-proc.exited:
			stop()
		case <-stopCtx.Done():
		}
	}()

	graceful := latch.New()
	r := &relay{
		log:         h.log.Desugar().Named("relay").Sugar(),
		proc:        proc,
		endpoint:    server,
		stopMessage: cfg.Stop.Message,
		graceful:    graceful,
	}
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		r.run(stopCtx)
	}()

	<-stopCtx.Done()
	h.setState(stateStopping)

	reason := h.shutdown(cfg.Stop, proc, server, graceful)

	select {
	case <-relayDone:
	case <-time.After(drainTimeout):
		h.log.Debug("timed out draining process output")
	}

	err := multierr.Combine(proc.close(), server.Close())
	<-relayDone
	if status != nil {
		err = multierr.Append(err, status.Close())
	}
	if err != nil {
		h.log.Debugf("error releasing resources: %s", err)
	}

	h.mut.Lock()
	h.state = stateStopped
	h.stopReason = reason
	h.mut.Unlock()

	h.log.Infow("host stopped", "Reason", reason.String(), "ExitCode", proc.exitCode())
	h.stopped.Set()
}

// shutdown asks the process to stop, escalating to kill when it does not comply in time.
func (h *Host) shutdown(policy StopPolicy, proc *process, server *console.Server, graceful *latch.Latch) StopReason {
	if proc.hasExited() {
		h.logBoth(server, "Process exited.")
		return StopReasonExited
	}

	h.logBoth(server, "Shutting down process...")

	if policy.Command != "" {
		if err := proc.writeLine(policy.Command); err != nil {
			h.log.Warnf("error sending stop command: %s", err)
		}

		timer := time.NewTimer(policy.timeout())
		defer timer.Stop()
		select {
		case <-graceful.Done():
			h.logBoth(server, "Process stopped by host with stop message.")
			return StopReasonStopMessage
		case <-proc.exited:
			h.logBoth(server, "Process stopped by host.")
			return StopReasonStoppedByHost
		case <-timer.C:
		}

		if proc.hasExited() {
			h.logBoth(server, "Process stopped by host.")
			return StopReasonStoppedByHost
		}
		h.logBoth(server, "Timed out waiting for process to shut down cleanly, killing process...")
	}

	if err := proc.kill(); err != nil {
		h.log.Warnf("error killing process: %s", err)
	}
	select {
	case <-proc.exited:
	case <-time.After(drainTimeout):
		h.log.Warnf("process %d still running after kill", proc.pid())
	}
	h.logBoth(server, "Process killed.")
	return StopReasonKilled
}

// logBoth logs message and also sends it to the attached peer, if any.
func (h *Host) logBoth(server *console.Server, message string) {
	h.log.Info(message)
	ctx, cancel := context.WithTimeout(context.Background(), peerMessageTimeout)
	defer cancel()
	if _, err := server.TryWriteLine(ctx, peerMessagePrefix+message); err != nil {
		h.log.Debugf("error sending message to peer: %s", err)
	}
}
