package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Executable: "/bin/cat", Bind: DefaultBind, Port: DefaultPort}

	cases := []struct {
		name   string
		mutate func(c *Config)
		expErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty bind means default", mutate: func(c *Config) { c.Bind = "" }},
		{name: "ipv6 bind", mutate: func(c *Config) { c.Bind = "::1" }},
		{name: "no executable", mutate: func(c *Config) { c.Executable = "" }, expErr: ErrNoExecutable},
		{name: "port zero", mutate: func(c *Config) { c.Port = 0 }, expErr: ErrInvalidPort},
		{name: "port too large", mutate: func(c *Config) { c.Port = 65536 }, expErr: ErrInvalidPort},
		{name: "hostname bind", mutate: func(c *Config) { c.Bind = "localhost" }, expErr: ErrInvalidBind},
		{name: "garbage bind", mutate: func(c *Config) { c.Bind = "1.2.3" }, expErr: ErrInvalidBind},
		{
			name:   "negative stop timeout",
			mutate: func(c *Config) { c.Stop = StopPolicy{Command: "quit", Timeout: -time.Second} },
			expErr: ErrNegativeStopTimeout,
		},
		{
			name:   "stop message without command",
			mutate: func(c *Config) { c.Stop = StopPolicy{Message: "bye"} },
			expErr: ErrStopPolicyWithoutCommand,
		},
		{
			name:   "custom timeout without command",
			mutate: func(c *Config) { c.Stop = StopPolicy{Timeout: 5 * time.Second} },
			expErr: ErrStopPolicyWithoutCommand,
		},
		{
			name:   "default timeout without command",
			mutate: func(c *Config) { c.Stop = StopPolicy{Timeout: DefaultStopTimeout} },
		},
		{
			name:   "full stop policy",
			mutate: func(c *Config) { c.Stop = StopPolicy{Command: "quit", Message: "bye", Timeout: 5 * time.Second} },
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := valid
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.expErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, c.expErr)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Executable: "/opt/game/server", Port: 4000}
	assert.Equal(t, "/opt/game", cfg.workingDir())
	assert.Equal(t, "127.0.0.1:4000", cfg.listenAddr())
	assert.Equal(t, DefaultStopTimeout, cfg.Stop.timeout())

	cfg.WorkingDir = "/srv"
	cfg.Bind = "::"
	assert.Equal(t, "/srv", cfg.workingDir())
	assert.Equal(t, "[::]:4000", cfg.listenAddr())
}

func TestParseConfig(t *testing.T) {
	cases := []struct {
		name      string
		yaml      string
		expConfig Config
		expErr    bool
	}{
		{
			name: "minimal",
			yaml: "executable: /usr/bin/server\n",
			expConfig: Config{
				Executable: "/usr/bin/server",
				Bind:       DefaultBind,
				Port:       DefaultPort,
			},
		},
		{
			name: "full",
			yaml: `
executable: /usr/bin/server
args: ["-nographics", "--world", "my world"]
working_directory: /srv/world
bind: 0.0.0.0
port: 4100
stop_command: quit
stop_message: Goodbye
stop_timeout_ms: 2500
status_addr: 127.0.0.1:9000
`,
			expConfig: Config{
				Executable: "/usr/bin/server",
				Args:       []string{"-nographics", "--world", "my world"},
				WorkingDir: "/srv/world",
				Bind:       "0.0.0.0",
				Port:       4100,
				Stop:       StopPolicy{Command: "quit", Message: "Goodbye", Timeout: 2500 * time.Millisecond},
				StatusAddr: "127.0.0.1:9000",
			},
		},
		{
			name: "explicit zero timeout",
			yaml: "executable: x\nstop_command: quit\nstop_timeout_ms: 0\n",
			expConfig: Config{
				Executable: "x",
				Bind:       DefaultBind,
				Port:       DefaultPort,
				Stop:       StopPolicy{Command: "quit", Timeout: time.Millisecond},
			},
		},
		{
			name:   "unknown field",
			yaml:   "executable: x\nstopcommand: quit\n",
			expErr: true,
		},
		{
			name:   "wrong type",
			yaml:   "executable: x\nport: lots\n",
			expErr: true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(c.yaml))
			if c.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expConfig, cfg)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executable: /bin/cat\nport: 4200\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/cat", cfg.Executable)
	assert.Equal(t, 4200, cfg.Port)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
