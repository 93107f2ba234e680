// Command arbor renders CUE descriptions, runs reconciliation scenarios and
// reads commit journals.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/arbor/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arbor: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
