package gmailapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"

	"github.com/gmailkit/gmailkit/gmail"
)

// Connect authenticates against Gmail using credentials stored under cfgDir
// and returns a wire client. localcred caches the token after the first
// interactive consent flow and requests its fixed scope set, which covers
// every operation this library performs.
func Connect(ctx context.Context, cfgDir string) (gmail.Client, error) {
	svc, err := (localcred.Provider{}).Service(ctx, cfgDir)
	if err != nil {
		return nil, fmt.Errorf("authenticate gmail: %w", err)
	}
	return New(svc), nil
}

// DefaultLogger returns the text logger the CLIs use.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
