package console

import (
	"time"

	"go.uber.org/zap"
)

// DefaultPort is the TCP port hosts listen on and clients dial unless told otherwise.
const DefaultPort = 21331

const (
	defaultRetryInterval   = 1 * time.Second
	defaultProbeInterval   = 1 * time.Second
	defaultKeepAlivePeriod = 1 * time.Second
)

type options struct {
	logger          *zap.Logger
	retryInterval   time.Duration
	probeInterval   time.Duration
	keepAlivePeriod time.Duration
}

// Option configures a Server or a Client.
type Option func(o *options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRetryInterval sets the backoff between failed accept or dial attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		o.retryInterval = d
	}
}

// WithProbeInterval sets how often the liveness probe runs while connected.
func WithProbeInterval(d time.Duration) Option {
	return func(o *options) {
		o.probeInterval = d
	}
}

// WithKeepAlivePeriod sets the TCP keep-alive idle time and probe interval of accepted sockets.
func WithKeepAlivePeriod(d time.Duration) Option {
	return func(o *options) {
		o.keepAlivePeriod = d
	}
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{
		retryInterval:   defaultRetryInterval,
		probeInterval:   defaultProbeInterval,
		keepAlivePeriod: defaultKeepAlivePeriod,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}
	return o, nil
}
