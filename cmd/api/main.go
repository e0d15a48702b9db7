package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"guardianchain.app/internal/audit"
	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/config"
	"guardianchain.app/internal/httpapi"
	"guardianchain.app/internal/obs"
	"guardianchain.app/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "guardian-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := obs.NewLogger(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)
	metrics.SetBuildInfo(version, commit)

	codec, err := auth.NewCodec([]byte(cfg.AuthSecret), auth.WithTTL(cfg.TokenTTL), auth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	// Without a database the directory is empty and POST /v1/tokens answers 404.
	var (
		db        *sql.DB
		directory auth.Directory = auth.NewStaticDirectory()
	)
	if cfg.PGDSN != "" {
		db, err = pg.Open(cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		directory = pg.NewAccountDirectory(db)
	} else {
		logger.Warn("GUARDIAN_PG_DSN not set; account directory is empty")
	}

	api, err := httpapi.New(httpapi.Options{
		Codec:          codec,
		Directory:      directory,
		Ready:          httpapi.ReadyProbe{DB: db},
		Logger:         logger,
		Metrics:        metrics,
		Gatherer:       reg,
		Audit:          audit.NewRecorder(logger),
		Version:        version,
		RequestTimeout: cfg.RequestTimeout,
		Production:     cfg.IsProduction(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting guardian-api",
			slog.String("version", version),
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env),
			slog.Duration("token_ttl", codec.TTL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
