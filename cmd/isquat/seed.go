package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/isquat/isquat/internal/config"
	"github.com/isquat/isquat/internal/location"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the Auckland demo districts and toilets",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	res, err := location.Seed(ctx, pool, location.DefaultFixture(time.Now()))
	if err != nil {
		return fmt.Errorf("seeding demo data: %w", err)
	}

	slog.Info("demo data seeded", "districts", res.Districts, "tags", res.Tags, "toilets", res.Toilets)
	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Districts: %d new\n", res.Districts)
	fmt.Printf("Tags:      %d new\n", res.Tags)
	fmt.Printf("Toilets:   %d new\n", res.Toilets)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl http://localhost:%d/api/toilets/top\n", cfg.Server.Port)

	return nil
}
