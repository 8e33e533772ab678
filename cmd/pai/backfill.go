package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pai/internal/backfill"
	"github.com/MikeSquared-Agency/pai/internal/config"
	"github.com/MikeSquared-Agency/pai/internal/slack"
)

func newBackfillCmd() *cobra.Command {
	var (
		bcfg         backfill.Config
		since, until string
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Import interview exports from disk as profile versions",
		Long: `Walks a directory of .json and .jsonl interview exports, drops duplicates
and exports with no participant turns, and extracts a new profile version for
each remaining one. Progress is kept in a state file so reruns resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			closeLog := setupLogging(cfg, os.Stderr)
			defer closeLog()

			if bcfg.Dir == "" && bcfg.SingleFile == "" {
				return fmt.Errorf("one of --dir or --file is required")
			}
			var err error
			if bcfg.Since, err = parseDate(since); err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			if bcfg.Until, err = parseDate(until); err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			proc, cleanup, err := newProcessor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
			sum, err := backfill.NewRunner(bcfg, proc, poster, slog.Default()).Run(cmd.Context())
			if sum != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\n=== Backfill Summary ===\n")
				fmt.Fprintf(out, "Files discovered: %d\n", sum.Discovered)
				fmt.Fprintf(out, "Profiles created: %d\n", sum.Imported)
				fmt.Fprintf(out, "Duplicates: %d\n", sum.Duplicates)
				fmt.Fprintf(out, "Skipped: %d\n", sum.Skipped)
				fmt.Fprintf(out, "Errors: %d\n", sum.Failed)
				if sum.DryRun {
					fmt.Fprintf(out, "Mode: DRY RUN (nothing written)\n")
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&bcfg.Dir, "dir", "", "Directory of interview exports")
	f.StringVar(&bcfg.SingleFile, "file", "", "Import a single export file")
	f.StringVar(&bcfg.StatePath, "state", backfill.DefaultStatePath, "Resumable state file")
	f.StringVar(&since, "since", "", "Only exports with messages on or after this date (YYYY-MM-DD)")
	f.StringVar(&until, "until", "", "Only exports with messages on or before this date (YYYY-MM-DD)")
	f.BoolVar(&bcfg.DryRun, "dry-run", false, "List what would be imported without extracting")
	f.IntVar(&bcfg.BatchSize, "batch-size", 10, "Imports between state saves")
	f.DurationVar(&bcfg.BatchPause, "batch-pause", 30*time.Second, "Pause between batches")
	f.IntVar(&bcfg.MinExchanges, "min-exchanges", 1, "Minimum participant turns for an export to be imported")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
