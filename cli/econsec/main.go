package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alphabill-org/econsec/cli/econsec/cmd"
	"github.com/alphabill-org/econsec/observability"
)

// set by the linker: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.New(observability.DefaultFactory(version)).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "econsec error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
