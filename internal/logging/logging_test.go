package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		expLevel zapcore.Level
		expErr   bool
	}{
		{name: "default", args: nil, expLevel: zapcore.InfoLevel},
		{name: "debug", args: []string{"--log-level", "debug"}, expLevel: zapcore.DebugLevel},
		{name: "warn", args: []string{"--log-level", "warn"}, expLevel: zapcore.WarnLevel},
		{name: "invalid", args: []string{"--log-level", "loud"}, expErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var (
				level  zapcore.Level
				newErr error
			)
			app := &cli.App{
				Flags: []cli.Flag{LevelFlag()},
				Action: func(ctx *cli.Context) error {
					logger, err := New(ctx)
					newErr = err
					if err == nil {
						level = logger.Level()
					}
					return nil
				},
			}
			require.NoError(t, app.Run(append([]string{"test"}, c.args...)))
			if c.expErr {
				assert.Error(t, newErr)
				return
			}
			require.NoError(t, newErr)
			assert.Equal(t, c.expLevel, level)
		})
	}
}
