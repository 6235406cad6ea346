package queue

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombar/arpolarity/internal/analyzer"
	"github.com/zombar/arpolarity/internal/database"
	"github.com/zombar/arpolarity/internal/lexicon"
	"github.com/zombar/arpolarity/internal/metrics"
	"github.com/zombar/arpolarity/internal/stopwords"
	"github.com/zombar/arpolarity/internal/tokenizer"
)

// newTestWorker builds a Worker without an asynq server, backed by a fresh
// SQLite database.
func newTestWorker(t *testing.T) *Worker {
	t.Helper()

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	lex, err := lexicon.FromEntries(nil, map[string]string{
		"ممتاز":   "Pos",
		"سيء":     "Neg",
		"سيء جدا": "Neg",
	})
	if err != nil {
		t.Fatalf("Failed to build lexicon: %v", err)
	}
	stop, err := stopwords.Default(nil)
	if err != nil {
		t.Fatalf("Failed to load stop words: %v", err)
	}
	tok, err := tokenizer.New(stop)
	if err != nil {
		t.Fatalf("Failed to create tokenizer: %v", err)
	}
	a, err := analyzer.New(lex, tok)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	return &Worker{
		db:       db,
		analyzer: a,
		metrics:  metrics.New("test", prometheus.NewRegistry()),
		workers:  2,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
