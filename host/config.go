package host

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guseggert/interactiveservice/console"
)

const (
	DefaultBind        = "127.0.0.1"
	DefaultPort        = console.DefaultPort
	DefaultStopTimeout = 1000 * time.Millisecond
)

var (
	ErrNoExecutable             = errors.New("no executable specified")
	ErrInvalidPort              = errors.New("port must be in the range [1,65535]")
	ErrInvalidBind              = errors.New("format of the bind address is invalid")
	ErrNegativeStopTimeout      = errors.New("stop timeout must be equal or greater than 0")
	ErrStopPolicyWithoutCommand = errors.New("stop message and stop timeout can only be specified together with a stop command")
)

// StopPolicy describes how the process is asked to stop before it is killed.
type StopPolicy struct {
	// Command is written to the process's stdin, followed by a newline, when the host stops.
	// Empty means the process is killed right away.
	Command string
	// Message is the line the process prints once it is stopping. Requires Command.
	Message string
	// Timeout bounds the wait for Message or for the process to exit. Zero means DefaultStopTimeout.
	// Requires Command unless it is zero or the default.
	Timeout time.Duration
}

func (p StopPolicy) timeout() time.Duration {
	if p.Timeout == 0 {
		return DefaultStopTimeout
	}
	return p.Timeout
}

func (p StopPolicy) Validate() error {
	if p.Timeout < 0 {
		return ErrNegativeStopTimeout
	}
	if p.Command == "" && (p.Message != "" || p.timeout() != DefaultStopTimeout) {
		return ErrStopPolicyWithoutCommand
	}
	return nil
}

// Config is everything the host needs to run one process.
type Config struct {
	Executable string
	Args       []string
	// WorkingDir defaults to the directory containing Executable.
	WorkingDir string

	Bind string
	Port int

	Stop StopPolicy

	// StatusAddr, if set, serves a JSON status endpoint at GET /status on that address.
	StatusAddr string
}

func (c Config) Validate() error {
	if c.Executable == "" {
		return ErrNoExecutable
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if net.ParseIP(c.bind()) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidBind, c.Bind)
	}
	if err := c.Stop.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) bind() string {
	if c.Bind == "" {
		return DefaultBind
	}
	return c.Bind
}

func (c Config) listenAddr() string {
	return net.JoinHostPort(c.bind(), strconv.Itoa(c.Port))
}

func (c Config) workingDir() string {
	if c.WorkingDir != "" {
		return c.WorkingDir
	}
	return filepath.Dir(c.Executable)
}
