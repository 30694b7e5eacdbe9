package logging

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LevelFlagName = "log-level"

// LevelFlag is the --log-level flag shared by the command-line programs.
func LevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  LevelFlagName,
		Usage: "Minimum log level. One of [debug,info,warn,error].",
		Value: "info",
	}
}

// New builds a development logger at the level given by LevelFlag.
func New(ctx *cli.Context) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(ctx.String(LevelFlagName))
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
