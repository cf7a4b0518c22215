// ircprobe - a conformance harness for IRC servers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ircprobe/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ircprobe: %v\n", err)
		os.Exit(1)
	}
}
