package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MikeSquared-Agency/pai/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "pai",
		Short:         "Digital-twin interviews, profile extraction and prediction validation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
			} else {
				config.LoadDotEnv()
			}
		},
		// Bare "pai" runs the service.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")

	root.AddCommand(
		newServeCmd(),
		newExtractCmd(),
		newPredictCmd(),
		newValidateCmd(),
		newBackfillCmd(),
		newWatchCmd(),
	)
	return root
}

// setupLogging installs a JSON slog handler on w, teed to a rotating file
// when LOG_FILE is set. The returned func closes the file.
func setupLogging(cfg config.Config, w io.Writer) func() {
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	out := w
	closeFn := func() {}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(w, file)
		closeFn = func() { _ = file.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return closeFn
}
