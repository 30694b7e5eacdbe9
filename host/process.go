package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/multierr"
)

// Tracker is told about every child process right after it starts, so that it
// can reap the child should the host itself die unexpectedly.
type Tracker interface {
	Track(p *os.Process) error
}

// process is a running child with line-oriented access to its stdin and stdout.
type process struct {
	cmd *exec.Cmd

	// stdin and stdout are our ends of plain OS pipes rather than exec's managed pipes,
	// so that cmd.Wait does not close stdout before the relay has drained it.
	stdin  *os.File
	stdout *os.File

	stdinMut sync.Mutex

	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
}

func startProcess(cfg Config) (*process, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	cmd := exec.Command(cfg.Executable, cfg.Args...)
	cmd.Dir = cfg.workingDir()
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = sysProcAttr()

	err = cmd.Start()
	// the child holds its own copies of these ends now
	stdinR.Close()
	stdoutW.Close()
	if err != nil {
		stdinW.Close()
		stdoutR.Close()
		return nil, err
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdinW,
		stdout: stdoutR,
		exited: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *process) pid() int {
	return p.cmd.Process.Pid
}

func (p *process) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// exitCode returns the exit code once the process has exited, or -1 if it
// is still running or was terminated by a signal.
func (p *process) exitCode() int {
	if !p.hasExited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// writeLine writes line and a newline to the process's stdin.
func (p *process) writeLine(line string) error {
	p.stdinMut.Lock()
	defer p.stdinMut.Unlock()
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

func (p *process) kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// close releases our ends of the stdio pipes. Closing stdout unblocks a pending read.
func (p *process) close() error {
	var err error
	p.closeOnce.Do(func() {
		err = multierr.Combine(p.stdin.Close(), p.stdout.Close())
	})
	return err
}
