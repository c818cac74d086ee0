package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pktcore/internal/failures"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(failures.ExitCode(err))
	}
}
