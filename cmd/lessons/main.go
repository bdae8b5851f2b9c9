// lessons runs the tutorial state graphs.
//
// Usage:
//
//	lessons list
//	lessons run <lesson> [--input state.yaml] [--set key=value ...] [--max-steps N]
//	lessons graph <lesson> [--sample name]
//	lessons validate [lesson ...]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
