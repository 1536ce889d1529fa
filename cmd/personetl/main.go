package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/personetl/internal/config"
	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/logging"
)

func main() {
	// Interrupts cancel the run; there is no partial-cancel contract.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := NewRootCommand(os.Stdout, os.Stderr, nil).ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error("run failed", "phase", core.PhaseOf(err), "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n%s\n", err, core.FormatUserError(err))
	}
	os.Exit(exitCode(err))
}

// setupLogging sends logs to w so stdout stays reserved for the report.
func setupLogging(cfg *config.Config, w io.Writer) {
	logging.SetupWriter(w, cfg.Logging.Level, cfg.Logging.Format)
}
