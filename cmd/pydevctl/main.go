package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/danmuck/pydevctl/internal/pause"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !pause.Shown(err) {
			fmt.Fprintf(os.Stderr, "pydevctl: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
