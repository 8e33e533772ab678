package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pai/internal/config"
	"github.com/MikeSquared-Agency/pai/internal/hermes"
)

func newWatchCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print Pai domain events from NATS as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			closeLog := setupLogging(cfg, os.Stderr)
			defer closeLog()

			if cfg.NatsURL == "" {
				return errors.New("missing required configuration: NATS_URL")
			}
			client, err := hermes.NewClient(cmd.Context(), cfg.NatsURL, cfg.NatsToken, slog.Default())
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.Subscribe(subject, func(subject string, data []byte) {
				fmt.Fprintf(out, "%s %s\n", subject, data)
			})
			if err != nil {
				return err
			}

			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", hermes.SubjectAll, "NATS subject to subscribe to")
	return cmd
}
