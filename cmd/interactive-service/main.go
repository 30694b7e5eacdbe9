package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guseggert/interactiveservice/host"
	"github.com/guseggert/interactiveservice/internal/files"
	"github.com/guseggert/interactiveservice/internal/logging"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file. Defaults to the nearest " + defaultConfigFile + " in the current directory or its parents. Flags given on the command line override its values.",
	},
	&cli.StringFlag{
		Name:    "working-directory",
		Aliases: []string{"d"},
		Usage:   "Working directory of the process. Defaults to the directory of the executable.",
	},
	&cli.StringFlag{
		Name:    "bind",
		Aliases: []string{"b"},
		Usage:   "The IP address to listen on.",
		Value:   host.DefaultBind,
	},
	&cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "The TCP port to listen on.",
		Value:   host.DefaultPort,
	},
	&cli.StringFlag{
		Name:    "stop-command",
		Aliases: []string{"s"},
		Usage:   "Line written to the process's stdin to ask it to stop. If unset, the process is killed.",
	},
	&cli.StringFlag{
		Name:    "stop-message",
		Aliases: []string{"m"},
		Usage:   "Line printed by the process once it is stopping. Requires --stop-command.",
	},
	&cli.IntFlag{
		Name:    "stop-timeout",
		Aliases: []string{"t"},
		Usage:   "Milliseconds to wait for the process to stop before killing it. Requires --stop-command.",
		Value:   int(host.DefaultStopTimeout / time.Millisecond),
	},
	&cli.StringFlag{
		Name:  "status-addr",
		Usage: "If set, serve a JSON status endpoint at GET /status on this address.",
	},
	logging.LevelFlag(),
}

func main() {
	app := &cli.App{
		Name:      "interactive-service",
		Usage:     "run a console program in the background and expose its stdin/stdout over TCP",
		ArgsUsage: "EXECUTABLE [ARGS...]",
		Flags:     flags,
		Action: func(ctx *cli.Context) error {
			cfg, err := buildConfig(ctx)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return cli.Exit(err.Error(), 2)
			}

			logger, err := logging.New(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()

			h, err := host.New(host.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("building host: %w", err)
			}

			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := h.StartContext(sigCtx, cfg); err != nil {
				return err
			}

			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Println("Press ENTER to quit.")
				go func() {
					bufio.NewReader(os.Stdin).ReadString('\n')
					h.Stop()
				}()
			}

			return h.Wait()
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// defaultConfigFile is looked up from the current directory upwards when --config is not given.
const defaultConfigFile = "interactive-service.yaml"

// buildConfig layers the config file, if any, under the command line.
func buildConfig(ctx *cli.Context) (host.Config, error) {
	cfg := host.Config{Bind: host.DefaultBind, Port: host.DefaultPort}
	path := ctx.String("config")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return host.Config{}, fmt.Errorf("getting working directory: %w", err)
		}
		path, err = files.FindUp(defaultConfigFile, wd)
		if err != nil {
			return host.Config{}, fmt.Errorf("looking for %s: %w", defaultConfigFile, err)
		}
	}
	if path != "" {
		fileCfg, err := host.LoadConfigFile(path)
		if err != nil {
			return host.Config{}, err
		}
		cfg = fileCfg
	}

	if ctx.Args().Present() {
		cfg.Executable = ctx.Args().First()
		cfg.Args = ctx.Args().Tail()
	}
	if cfg.Executable == "" {
		return host.Config{}, cli.Exit(errors.New("no executable specified, see --help"), 2)
	}

	if ctx.IsSet("working-directory") {
		cfg.WorkingDir = ctx.String("working-directory")
	}
	if ctx.IsSet("bind") {
		cfg.Bind = ctx.String("bind")
	}
	if ctx.IsSet("port") {
		cfg.Port = ctx.Int("port")
	}
	if ctx.IsSet("stop-command") {
		cfg.Stop.Command = ctx.String("stop-command")
	}
	if ctx.IsSet("stop-message") {
		cfg.Stop.Message = ctx.String("stop-message")
	}
	if ctx.IsSet("stop-timeout") {
		ms := ctx.Int("stop-timeout")
		cfg.Stop.Timeout = time.Duration(ms) * time.Millisecond
		if ms == 0 {
			cfg.Stop.Timeout = time.Millisecond
		}
	}
	if ctx.IsSet("status-addr") {
		cfg.StatusAddr = ctx.String("status-addr")
	}
	return cfg, nil
}
