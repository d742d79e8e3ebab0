package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/PeterWorld816/movieapi/internal/audit"
	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/cache"
	"github.com/PeterWorld816/movieapi/internal/config"
	httpx "github.com/PeterWorld816/movieapi/internal/http"
	"github.com/PeterWorld816/movieapi/internal/http/handlers"
	"github.com/PeterWorld816/movieapi/internal/http/middlewares"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/PeterWorld816/movieapi/internal/redisclient"
	"github.com/PeterWorld816/movieapi/internal/repo"
	"github.com/PeterWorld816/movieapi/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("movieapi exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	openCtx, cancelOpen := config.WithTimeout(ctx, 30*time.Second)
	stores, err := repo.Open(openCtx, cfg, prom, log)
	cancelOpen()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer stores.Close()

	hasher, err := security.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		return err
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL, auth.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		return err
	}

	accounts, err := auth.NewService(ctx, auth.Deps{
		Users:      stores.Users,
		Hasher:     hasher,
		Tokens:     tokens,
		Identities: cache.New[auth.Identity](cfg.IdentityCacheTTL),
		Audit:      audit.NewLogRecorder(log, prom),
		Prom:       prom,
	})
	if err != nil {
		return err
	}

	ready := map[string]handlers.Pinger{"store": stores.Ping}
	var draining atomic.Bool

	var rateStore middlewares.CounterStore
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		rateStore = rdb
		ready["redis"] = rdb.Ping
		log.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		ServiceName:        cfg.ServiceName,
		Accounts:           accounts,
		Users:              stores.Users,
		Movies:             stores.Movies,
		Prom:               prom,
		Gatherer:           reg,
		RateStore:          rateStore,
		AuthRateLimit:      cfg.AuthRateLimit,
		AuthRateWindow:     cfg.AuthRateWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Ready:              ready,
		Draining:           draining.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")
	draining.Store(true)

	shutdownCtx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
