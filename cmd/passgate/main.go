package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~jakintosh/passgate/internal/api"
	"git.sr.ht/~jakintosh/passgate/internal/config"
	"git.sr.ht/~jakintosh/passgate/internal/database"
	"git.sr.ht/~jakintosh/passgate/internal/limiter"
	"git.sr.ht/~jakintosh/passgate/internal/logging"
	"git.sr.ht/~jakintosh/passgate/internal/password"
	"git.sr.ht/~jakintosh/passgate/internal/service"
	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	levelVar, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, levelVar); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(
	cfg *config.Config,
	levelVar *slog.LevelVar,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WeakSecret() {
		slog.Warn("JWT_SECRET is shorter than recommended", "min_bytes", config.MinSecretLength)
	}

	// storage
	store, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	slog.Info("store opened", "driver", cfg.DBDriver)

	// password hashing
	hasher, err := password.NewHasher(password.Config{
		Algorithm:  password.Algorithm(cfg.PasswordAlgorithm),
		BcryptCost: cfg.BcryptCost,
		Argon2:     password.DefaultArgon2Params(),
	})
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}
	pool := password.NewPool(hasher, cfg.HashWorkers)
	slog.Info("password hasher ready", "algorithm", cfg.PasswordAlgorithm, "workers", pool.Size())

	// login throttling
	lim, err := limiter.New(limiter.Config{
		MaxAttempts: cfg.LoginMaxAttempts,
		Window:      cfg.LoginWindow(),
		Shards:      limiter.DefaultShards,
	}, limiter.WithLogger(slog.Default().With("component", "limiter")))
	if err != nil {
		return fmt.Errorf("failed to create login limiter: %w", err)
	}
	go lim.Run(ctx, cfg.LimiterSweepInterval())

	// tokens
	var issuerOpts []tokens.Option
	if cfg.TokenIssuer != "" {
		issuerOpts = append(issuerOpts, tokens.WithIssuerDomain(cfg.TokenIssuer))
	}
	issuer, err := tokens.NewIssuer(cfg.JWTSecret, issuerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	svc := service.New(store, pool, issuer, lim, service.Options{
		ResetOnSuccess: cfg.LoginResetOnSuccess,
	})

	if cfg.ConfigFile != "" {
		err := cfg.Watch(ctx, func(next *config.Config) {
			if err := logging.SetLevel(levelVar, next.LogLevel); err != nil {
				slog.Warn("ignoring log level from reloaded config", "error", err)
				return
			}
			slog.Info("config reloaded", "log_level", next.LogLevel)
		})
		if err != nil {
			slog.Warn("config file will not be watched", "path", cfg.ConfigFile, "error", err)
		}
	}

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.New(svc, issuer).Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
