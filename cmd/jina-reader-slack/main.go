package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kznrluk/jina-reader/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewServer(version).ExecuteContext(ctx); err != nil {
		log.Fatalf("Error running Slack server: %v", err)
	}
}
