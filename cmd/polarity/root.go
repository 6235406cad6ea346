package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zombar/arpolarity/internal/analyzer"
	"github.com/zombar/arpolarity/internal/config"
	"github.com/zombar/arpolarity/internal/database"
	"github.com/zombar/arpolarity/internal/lexicon"
	"github.com/zombar/arpolarity/internal/metrics"
	"github.com/zombar/arpolarity/internal/models"
	"github.com/zombar/arpolarity/internal/normalizer"
	"github.com/zombar/arpolarity/internal/stopwords"
	"github.com/zombar/arpolarity/internal/tokenizer"
	"github.com/zombar/arpolarity/internal/tracing"
	"github.com/zombar/arpolarity/pkg/logging"
)

const version = "1.0.0"

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "polarity",
		Short:         "Arabic sentence polarity analysis",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (env: POLARITY_*)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	root.PersistentFlags().String("log-format", "", "json or text")

	root.AddCommand(
		newServeCmd(a),
		newWorkerCmd(a),
		newBatchCmd(a),
		newNormalizeCmd(a),
	)
	return root
}

// load builds the config from file, environment and the command's flags.
// binds maps config keys to flag names.
func (a *app) load(cmd *cobra.Command, binds map[string]string) (*config.Config, error) {
	v, err := config.New(a.configPath)
	if err != nil {
		return nil, err
	}

	all := map[string]string{"log.level": "log-level", "log.format": "log-format"}
	for key, name := range binds {
		all[key] = name
	}
	if err := bindFlags(v, cmd, all); err != nil {
		return nil, err
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, binds map[string]string) error {
	for key, name := range binds {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// buildAnalyzer loads stop words and the lexicon named by cfg.
func buildAnalyzer(cfg *config.Config, logger *slog.Logger, opts ...analyzer.Option) (*analyzer.Analyzer, error) {
	norm := normalizer.New()
	stop, err := loadStopWords(cfg, norm)
	if err != nil {
		return nil, err
	}

	lex, _, err := lexicon.LoadFile(cfg.Lexicon.Path, norm, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon: %w", err)
	}

	tok, err := tokenizer.New(stop, tokenizer.WithNormalizer(norm))
	if err != nil {
		return nil, err
	}
	return analyzer.New(lex, tok, opts...)
}

// loadStopWords reads the configured list, or the bundled one.
func loadStopWords(cfg *config.Config, norm *normalizer.Normalizer) (*stopwords.Set, error) {
	var (
		stop *stopwords.Set
		err  error
	)
	if cfg.Lexicon.StopWords != "" {
		stop, err = stopwords.LoadFile(cfg.Lexicon.StopWords, norm)
	} else {
		stop, err = stopwords.Default(norm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stop words: %w", err)
	}
	return stop, nil
}

func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// newMetrics registers the service collectors with the default registry,
// next to the Go runtime collectors.
func newMetrics() *metrics.Metrics {
	return metrics.New("arpolarity", prometheus.DefaultRegisterer)
}

// recordDBStats refreshes pool and batch gauges every interval until ctx ends.
func recordDBStats(ctx context.Context, db *database.DB, m *metrics.Metrics, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	update := func() {
		m.UpdateDBStats(db.Conn())
		counts, err := db.CountBatchesByStatus()
		if err != nil {
			logger.Warn("failed to count batches", "error", err)
			return
		}
		byStatus := make(map[string]int, len(counts))
		for _, s := range []models.BatchStatus{models.BatchPending, models.BatchRunning, models.BatchCompleted, models.BatchFailed} {
			byStatus[string(s)] = counts[s]
		}
		m.SetBatchCounts(byStatus)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// startTracing installs the tracer provider and returns its shutdown.
func startTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	tp, err := tracing.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		return func() {}
	}
	logger.Info("tracing initialized", "endpoint", cfg.Tracing.Endpoint)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down tracer", "error", err)
		}
	}
}
