package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gmailkit/gmailkit/gmailapi"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		gmailapi.DefaultLogger().Error("gmailkit failed", "error", err)
		os.Exit(1)
	}
}
