package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/isquat/isquat/internal/api"
	"github.com/isquat/isquat/internal/approval"
	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/config"
	"github.com/isquat/isquat/internal/location"
	"github.com/isquat/isquat/internal/metrics"
	"github.com/isquat/isquat/internal/moderation"
	"github.com/isquat/isquat/internal/ratelimit"
	"github.com/isquat/isquat/internal/storage"
	"github.com/isquat/isquat/internal/submission"
	"github.com/isquat/isquat/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the iSquat API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// backend is the data layer chosen by the configured data source.
type backend struct {
	locations location.Repository
	users     user.Repository
	writer    submission.Writer
	decisions approval.Store
	db        api.Pinger
	suggest   bool
	close     func()
}

func openBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*backend, error) {
	if !cfg.UseDatabase() {
		repo := location.NewFixtureRepository(location.DefaultFixture(time.Now()), m)
		slog.Info("using fixture data source")
		return &backend{
			locations: repo,
			users:     user.NewMemoryStore(),
			writer:    repo,
			decisions: repo,
			suggest:   true,
			close:     func() {},
		}, nil
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database")

	m.RegisterDBPoolCollector(func() metrics.PoolStats {
		s := pool.Stat()
		return metrics.PoolStats{
			Total:    s.TotalConns(),
			Idle:     s.IdleConns(),
			Acquired: s.AcquiredConns(),
			Max:      s.MaxConns(),
		}
	})

	return &backend{
		locations: location.NewDatabaseRepository(pool, m),
		users:     user.NewStore(pool),
		writer:    submission.NewDatabaseWriter(pool),
		decisions: approval.NewDatabaseStore(pool),
		db:        pool,
		close:     pool.Close,
	}, nil
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		AccessKeyID:     cfg.OSS.AccessKeyID,
		AccessKeySecret: cfg.OSS.AccessKeySecret,
		Bucket:          cfg.OSS.Bucket,
		Endpoint:        cfg.OSS.Endpoint,
		Region:          cfg.OSS.Region,
		PublicBaseURL:   cfg.OSS.PublicBaseURL,
		MaxUploadBytes:  cfg.OSS.MaxUploadBytes,
		PolicyTTL:       cfg.OSS.PolicyTTL,
	}
}

// openStorage returns the upload signer and the object store used to purge
// rejected photos. Both are nil when object storage is not configured.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.Signer, approval.ObjectDeleter, error) {
	opts := storageOptions(cfg)
	if !opts.Configured() {
		slog.Warn("object storage not configured, photo uploads disabled")
		return nil, nil, nil
	}
	signer, err := storage.NewSigner(opts)
	if err != nil {
		return nil, nil, err
	}
	objects, err := storage.NewObjectStore(ctx, opts, false)
	if err != nil {
		return nil, nil, err
	}
	return signer, objects, nil
}

func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		return ratelimit.NewMemory(cfg.RateLimit.Default, cfg.RateLimit.Window), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	slog.Info("using redis rate limiter", "addr", cfg.RateLimit.RedisAddr)
	limiter := ratelimit.NewRedis(client, cfg.RateLimit.Default, cfg.RateLimit.Window, "isquat:ratelimit:")
	return limiter, func() { _ = client.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	be, err := openBackend(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer be.close()

	signer, objects, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	users := user.NewAuthAdapter(be.users)
	sessions, err := auth.NewManager(users, auth.ManagerOptions{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.IsProduction(),
	})
	if err != nil {
		return err
	}

	moderator := moderation.New(moderation.Options{
		Enabled: cfg.Moderation.Enabled,
		BaseURL: cfg.Moderation.BaseURL,
		APIKey:  cfg.Moderation.APIKey,
		Model:   cfg.Moderation.Model,
		Timeout: cfg.Moderation.Timeout,
	}, m)
	if !moderator.Enabled() {
		slog.Warn("image moderation disabled")
	}

	deps := api.RouterDeps{
		Locations: be.locations,
		Suggest:   be.suggest,
		Sessions:  sessions,
		Auth:      auth.NewService(users, cfg.AdminEmails(), cfg.Auth.BcryptCost),
		Submissions: submission.NewService(submission.Options{
			Writer:   be.writer,
			Signer:   signer,
			Recorder: m,
		}),
		Approvals: approval.NewService(be.decisions, objects, m),
		Signer:    signer,
		Moderator: moderator,
		Limiter:   limiter,
		Metrics:   m,
	}
	if be.db != nil {
		deps.DB = be.db
	}
	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
