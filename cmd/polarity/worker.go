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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zombar/arpolarity/internal/queue"
)

func newWorkerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued batches",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.String("db-driver", "sqlite", "database driver: sqlite or postgres")
	f.String("db", "", "database file or connection string")
	f.String("lexicon", "", "lexicon CSV file")
	f.String("stop-words", "", "stop word file, one word per line")
	f.String("redis", "", "redis address for the batch queue")
	f.Int("concurrency", 4, "batches processed at once")
	f.Int("workers", 0, "analysis goroutines per batch, 0 for GOMAXPROCS")
	f.Int("metrics-port", 9091, "port serving /metrics, 0 disables it")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := a.load(cmd, map[string]string{
			"database.driver":         "db-driver",
			"database.dsn":            "db",
			"lexicon.path":            "lexicon",
			"lexicon.stop_words":      "stop-words",
			"redis.addr":              "redis",
			"worker.concurrency":      "concurrency",
			"worker.analysis_workers": "workers",
			"worker.metrics_port":     "metrics-port",
		})
		if err != nil {
			return err
		}
		logger := a.logger
		logger.Info("arpolarity worker initializing", "version", version)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing := startTracing(ctx, cfg, logger)
		defer shutdownTracing()

		db, err := openDB(cfg)
		if err != nil {
			logger.Error("failed to initialize database", "error", err, "driver", cfg.Database.Driver)
			return err
		}
		defer db.Close()

		m := newMetrics()
		go recordDBStats(ctx, db, m, cfg.Database.StatsInterval, logger)

		an, err := buildAnalyzer(cfg, logger)
		if err != nil {
			return err
		}
		logger.Info("lexicon loaded", "path", cfg.Lexicon.Path, "terms", an.Lexicon().Len())

		if cfg.Worker.MetricsPort > 0 {
			srv := metricsServer(cfg.Worker.MetricsPort, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		w := queue.NewWorker(queue.WorkerConfig{
			RedisAddr:       cfg.Redis.Addr,
			RedisPassword:   cfg.Redis.Password,
			RedisDB:         cfg.Redis.DB,
			Concurrency:     cfg.Worker.Concurrency,
			AnalysisWorkers: cfg.Worker.AnalysisWorkers,
		}, db, an, m, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- w.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			w.Shutdown()
			<-errCh
		}

		logger.Info("worker stopped")
		return nil
	}
	return cmd
}

func metricsServer(port int, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
