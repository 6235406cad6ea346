package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zombar/arpolarity/internal/api"
	"github.com/zombar/arpolarity/internal/queue"
	"github.com/zombar/arpolarity/internal/tracing"
	"github.com/zombar/arpolarity/pkg/logging"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.Int("port", 8080, "server port")
	f.String("db-driver", "sqlite", "database driver: sqlite or postgres")
	f.String("db", "", "database file or connection string")
	f.String("lexicon", "", "lexicon CSV file")
	f.String("stop-words", "", "stop word file, one word per line")
	f.String("redis", "", "redis address for the batch queue")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := a.load(cmd, map[string]string{
			"server.port":        "port",
			"database.driver":    "db-driver",
			"database.dsn":       "db",
			"lexicon.path":       "lexicon",
			"lexicon.stop_words": "stop-words",
			"redis.addr":         "redis",
		})
		if err != nil {
			return err
		}
		logger := a.logger
		logger.Info("arpolarity api initializing", "version", version)

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

		q := queue.NewClient(queue.ClientConfig{
			RedisAddr:     cfg.Redis.Addr,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			MaxRetry:      cfg.Worker.MaxRetry,
			Timeout:       cfg.Worker.TaskTimeout,
		})
		defer q.Close()

		apiHandler := api.NewHandler(db, an, q, api.Options{
			Metrics:        m,
			Logger:         logger,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxBatchSize:   cfg.Server.MaxBatchSize,
			QueryTimeout:   cfg.Server.QueryTimeout,
		})

		// HTTP logging -> tracing -> handlers
		handler := logging.HTTPLoggingMiddleware(logger)(
			tracing.HTTPMiddleware(cfg.Tracing.ServiceName)(apiHandler),
		)

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("arpolarity api starting",
				"port", cfg.Server.Port,
				"database_driver", cfg.Database.Driver,
				"redis", cfg.Redis.Addr,
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				logger.Error("server failed to start", "error", err)
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
			return err
		}

		logger.Info("server stopped")
		return nil
	}
	return cmd
}
