package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/isquat/isquat/internal/config"
	"github.com/isquat/isquat/internal/user"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage login sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired login sessions",
	RunE:  runSessionsPrune,
}

func init() {
	sessionsCmd.AddCommand(sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := user.NewStore(pool).CleanExpiredSessions(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("pruning sessions: %w", err)
	}
	slog.Info("expired sessions pruned", "count", n)
	return nil
}
