package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/chatfront/cmd/chatfront/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cmds.App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin}
	err := cmds.NewRootCommand(app).ExecuteContext(ctx)
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
