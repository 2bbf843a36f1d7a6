// Command dtreegen trains a depth-limited decision tree on documents stored
// in MongoDB and prints the tree as a nested-conditional classification
// function.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/dtreegen/pkg/log"
)

func main() {
	log.SetupLogger(os.Stderr, "info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("dtreegen failed", log.ErrAttr(err))
		os.Exit(1)
	}
}
