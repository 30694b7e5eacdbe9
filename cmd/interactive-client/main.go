package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guseggert/interactiveservice/console"
	"github.com/guseggert/interactiveservice/internal/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:      "interactive-client",
		Usage:     "attach to an interactive-service host",
		ArgsUsage: "[HOST]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "The TCP port of the host.",
				Value:   console.DefaultPort,
			},
			logging.LevelFlag(),
		},
		Action: func(ctx *cli.Context) error {
			addr := "localhost"
			if ctx.Args().Present() {
				addr = ctx.Args().First()
			}

			logger, err := logging.New(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()

			client, err := console.NewClient(addr, ctx.Int("port"), console.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("building client: %w", err)
			}
			defer client.Close()
			client.Start()

			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return attach(sigCtx, logger.Named("attach").Sugar(), client, os.Stdin, os.Stdout)
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// attach copies lines from the host to out and from in to the host until ctx is done or in is exhausted.
func attach(ctx context.Context, log *zap.SugaredLogger, client *console.Client, in io.Reader, out io.Writer) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for ctx.Err() == nil {
			line, ok := client.ReadLine(ctx)
			if ok {
				fmt.Fprintln(out, line)
			}
		}
		return nil
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- trimLine(line):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Errorf("error reading input: %s", err)
				}
				return
			}
		}
	}()

	group.Go(func() error {
		for {
			// only consume input once there is somewhere to send it
			if err := client.WaitConnected(ctx); err != nil {
				return nil
			}
			select {
			case line, ok := <-lines:
				if !ok {
					return context.Canceled
				}
				client.WriteLine(ctx, line)
			case <-ctx.Done():
				return nil
			}
		}
	})

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
