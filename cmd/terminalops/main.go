// Command terminalops plans, validates and tracks terminal operations.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/roach88/terminalops/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; flags and the real environment win over it.
	_ = godotenv.Load()

	level := slog.LevelWarn
	if v := os.Getenv("TERMINALOPS_LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			level = slog.LevelWarn
		}
	}
	// stdout carries command output, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		slog.Debug("command failed", "error", err)
	}
	return cli.GetExitCode(err)
}
