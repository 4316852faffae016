// Package main is the intentstack command line: the API server plus a few
// maintenance commands that share its configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/intentstack/internal/application/container"
	"github.com/AtRiskMedia/intentstack/internal/application/startup"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// version is set at build time
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "intentstack",
		Short:         "Persona scoring and assistant decision service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newServeCmd(), newPurgeEventsCmd(), newScoreLeadCmd(), newHashPasswordCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startup.Initialize(); err != nil {
				return fmt.Errorf("application startup failed: %w", err)
			}
			log.Println("Application has shut down gracefully.")
			return nil
		},
	}
}

func newPurgeEventsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge-events",
		Short: "Delete interaction events older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			logger, err := startup.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			c, err := container.NewContainer(ctx, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			removed, err := c.EventService.PurgeOlderThan(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d events older than %d days\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", config.EventRetentionDays, "retention window in days")
	return cmd
}

func newScoreLeadCmd() *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "score-lead <params-json>",
		Short: "Score a lead from a JSON parameter object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params map[string]any
			if err := json.Unmarshal([]byte(args[0]), &params); err != nil {
				return fmt.Errorf("invalid params JSON: %w", err)
			}
			b := leads.Score(leads.ParamsFromMap(params))
			out := map[string]any{
				"score":     b.Total,
				"status":    leads.StatusFor(b.Total),
				"breakdown": b,
				"notify":    leads.NeedsNotification(b.Total, threshold),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", config.LeadHotScoreThreshold, "notification threshold")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
