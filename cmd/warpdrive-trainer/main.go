package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"warpdrive-trainer/internal/trainer"
)

func main() {
	app := &cli.Command{
		Name:  "warpdrive-trainer",
		Usage: "Train a classifier with a linear learning-rate warm-up",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			trainCmd(),
			deviceCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()
	os.Exit(exitCode(os.Stdout, os.Stderr, err))
}

// exitCode reports err and maps it to a process status. A non-finite training
// loss prints its diagnostic on stdout.
func exitCode(stdout, stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var nf *trainer.NonFiniteLossError
	if errors.As(err, &nf) {
		_, _ = fmt.Fprintln(stdout, nf.Diagnostic())
		return 1
	}
	_, _ = fmt.Fprintln(stderr, err)
	return 1
}
