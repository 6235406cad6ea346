package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/arpolarity/internal/analyzer"
	"github.com/zombar/arpolarity/internal/corpus"
	"github.com/zombar/arpolarity/internal/database"
	"github.com/zombar/arpolarity/internal/extract"
	"github.com/zombar/arpolarity/internal/metrics"
	"github.com/zombar/arpolarity/internal/models"
	"github.com/zombar/arpolarity/internal/report"
	"github.com/zombar/arpolarity/internal/tracing"
	"github.com/zombar/arpolarity/pkg/logging"
)

const maxBodyBytes = 10 << 20

var (
	errTimeout     = errors.New("request timeout")
	errInvalidBody = errors.New("invalid request body")
)

// BatchQueue hands stored batches to the worker
type BatchQueue interface {
	EnqueueAnalyzeBatch(ctx context.Context, batchID string) (string, error)
}

// Options tune the handler. Zero values pick defaults.
type Options struct {
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxBatchSize   int
	QueryTimeout   time.Duration
}

// Handler handles HTTP requests
type Handler struct {
	db           *database.DB
	analyzer     *analyzer.Analyzer
	queue        BatchQueue
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
	maxBatchSize int
	timeout      time.Duration
	mux          *http.ServeMux
}

func newHandler(db *database.DB, a *analyzer.Analyzer, q BatchQueue, opts Options) *Handler {
	h := &Handler{
		db:           db,
		analyzer:     a,
		queue:        q,
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
		logger:       opts.Logger,
		maxBatchSize: opts.MaxBatchSize,
		timeout:      opts.QueryTimeout,
		mux:          http.NewServeMux(),
	}
	if h.gatherer == nil {
		h.gatherer = prometheus.DefaultGatherer
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBatchSize <= 0 {
		h.maxBatchSize = 10000
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}
	h.setupRoutes()
	return h
}

// NewHandler creates the API handler with CORS support and metrics
func NewHandler(db *database.DB, a *analyzer.Analyzer, q BatchQueue, opts Options) http.Handler {
	h := newHandler(db, a, q, opts)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	h.mux.HandleFunc("/health", h.handleHealth)
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/normalize", h.handleNormalize)
	h.mux.HandleFunc("/api/tokenize", h.handleTokenize)
	h.mux.HandleFunc("/api/batches", h.handleBatches)
	h.mux.HandleFunc("/api/batches/", h.handleBatchOperations)
	h.mux.HandleFunc("/api/unlisted", h.handleUnlisted)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":       "ok",
		"time":         time.Now().Format(time.RFC3339),
		"lexicon_size": h.analyzer.Lexicon().Len(),
		"stop_words":   h.analyzer.Tokenizer().StopWords().Len(),
	}
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = err.Error()
	}
	respondJSON(w, body, status)
}

type textRequest struct {
	Text   string `json:"text"`
	HTML   string `json:"html,omitempty"`
	Unique bool   `json:"unique,omitempty"`
}

// decodeText reads a textRequest, converting HTML input to text.
func (h *Handler) decodeText(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	var req textRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.HTML != "" {
		text, err := extract.Text(req.HTML)
		if err != nil {
			respondError(w, "Invalid HTML", http.StatusBadRequest)
			return req, false
		}
		req.Text = text
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// handleAnalyze labels one sentence
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	ctx, span := otel.Tracer("arpolarity").Start(r.Context(), "polarity.analyze")
	span.SetAttributes(
		attribute.Int("text.length", len(req.Text)),
		attribute.Bool("input.html", req.HTML != ""),
	)
	start := time.Now()
	result := h.analyzer.Analyze(req.Text)
	took := time.Since(start)
	span.SetAttributes(
		attribute.String("polarity", result.Polarity.String()),
		attribute.Int("matches", len(result.Matches)),
		attribute.Int("unlisted", len(result.Unlisted)),
	)
	span.End()

	h.metrics.ObserveAnalysis(result.Polarity.String(), len(result.Unlisted), took)

	if len(result.Unlisted) > 0 {
		counts := analyzer.UnlistedCounts([]analyzer.Result{result})
		if err := h.db.RecordUnlistedTerms(counts, time.Now()); err != nil {
			tracing.RecordError(ctx, err)
			h.logger.Warn("failed to record unlisted terms", "error", err)
		}
	}

	respondJSON(w, map[string]any{
		"polarity":   result.Polarity,
		"positive":   result.Positive,
		"negative":   result.Negative,
		"matches":    nonNil(result.Matches),
		"unlisted":   nonNil(result.Unlisted),
		"normalized": h.analyzer.Tokenizer().Normalizer().Normalize(req.Text),
	}, http.StatusOK)
}

// handleNormalize returns the normalized form of text
func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	respondJSON(w, map[string]string{
		"normalized": h.analyzer.Tokenizer().Normalizer().Normalize(req.Text),
	}, http.StatusOK)
}

// handleTokenize returns the tokens the analyzer looks up
func (h *Handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	tok := h.analyzer.Tokenizer()
	tokens := tok.Tokenize(req.Text)
	if req.Unique {
		tokens = tok.TokenizeUnique(req.Text)
	}
	respondJSON(w, map[string]any{"tokens": nonNil(tokens)}, http.StatusOK)
}

type batchRequest struct {
	Name      string              `json:"name"`
	Sentences []models.BatchInput `json:"sentences"`
}

// handleBatches lists batches or accepts a new one
func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBatches(w, r)
	case http.MethodPost:
		h.createBatch(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeBatch reads a JSON batch, or a CSV corpus when the content type is text/csv.
func decodeBatch(r *http.Request) (batchRequest, error) {
	var req batchRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		inputs, err := corpus.ReadSentences(r.Body)
		if err != nil {
			return req, err
		}
		req.Name = r.URL.Query().Get("name")
		req.Sentences = inputs
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errInvalidBody
	}
	return req, nil
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := decodeBatch(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Sentences) == 0 {
		respondError(w, "At least one sentence is required", http.StatusBadRequest)
		return
	}
	if len(req.Sentences) > h.maxBatchSize {
		respondError(w, fmt.Sprintf("Batch exceeds %d sentences", h.maxBatchSize), http.StatusRequestEntityTooLarge)
		return
	}

	now := time.Now()
	batch := &models.Batch{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Status:    models.BatchPending,
		Sentences: req.Sentences,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx := r.Context()
	tracing.SetSpanAttributes(ctx,
		attribute.String("batch.id", batch.ID),
		attribute.Int("batch.sentences", len(batch.Sentences)),
	)

	if _, err := withTimeout(ctx, h.timeout, func() (struct{}, error) {
		return struct{}{}, h.db.CreateBatch(batch)
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	taskID, err := h.queue.EnqueueAnalyzeBatch(ctx, batch.ID)
	if err != nil {
		err = fmt.Errorf("failed to enqueue batch: %w", err)
		if uerr := h.db.UpdateBatchStatus(batch.ID, models.BatchFailed, err.Error()); uerr != nil {
			h.logger.Error("failed to mark batch failed", "batch_id", batch.ID, "error", uerr)
		}
		h.fail(w, r, err)
		return
	}

	logging.LogRequest(h.logger, r, "batch queued",
		slog.String("batch_id", batch.ID),
		slog.String("task_id", taskID),
		slog.Int("sentences", batch.SentenceCount),
	)

	respondJSON(w, map[string]any{
		"batch_id":  batch.ID,
		"task_id":   taskID,
		"status":    batch.Status,
		"sentences": batch.SentenceCount,
	}, http.StatusAccepted)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10, 1)
	offset := queryInt(r, "offset", 0, 0)

	batches, err := withTimeout(r.Context(), h.timeout, func() ([]*models.Batch, error) {
		return h.db.ListBatches(limit, offset)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, batches, http.StatusOK)
}

// handleBatchOperations routes /api/batches/{id}[/results|/report]
func (h *Handler) handleBatchOperations(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(r.URL.Path[len("/api/batches/"):], "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		respondError(w, "Batch ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.getBatch(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.deleteBatch(w, r, id)
	case sub == "results" && r.Method == http.MethodGet:
		h.getBatchResults(w, r, id)
	case sub == "report" && r.Method == http.MethodGet:
		h.getBatchReport(w, r, id)
	case sub != "" && sub != "results" && sub != "report":
		http.NotFound(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type batchView struct {
	*models.Batch
	Results []models.SentenceResult `json:"results,omitempty"`
}

// loadBatch fetches a batch and, once completed, its results.
func (h *Handler) loadBatch(ctx context.Context, id string) (batchView, error) {
	return withTimeout(ctx, h.timeout, func() (batchView, error) {
		batch, err := h.db.GetBatch(id)
		if err != nil {
			return batchView{}, err
		}
		view := batchView{Batch: batch}
		if batch.Status == models.BatchCompleted {
			if view.Results, err = h.db.GetBatchResults(id); err != nil {
				return batchView{}, err
			}
		}
		return view, nil
	})
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.loadBatch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, view, http.StatusOK)
}

// getBatchResults returns results as JSON, or as CSV with ?format=csv
func (h *Handler) getBatchResults(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.loadBatch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if view.Status != models.BatchCompleted {
		respondError(w, fmt.Sprintf("Batch is %s", view.Status), http.StatusConflict)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		respondJSON(w, nonNil(view.Results), http.StatusOK)
		return
	}

	finished := view.UpdatedAt
	if view.CompletedAt != nil {
		finished = *view.CompletedAt
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", corpus.ResultFileName(finished)))
	if err := corpus.WriteResults(w, view.Results); err != nil {
		h.logger.Error("failed to write results", "batch_id", id, "error", err)
	}
}

// getBatchReport returns the full agreement report of a completed batch
func (h *Handler) getBatchReport(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.loadBatch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if view.Status != models.BatchCompleted {
		respondError(w, fmt.Sprintf("Batch is %s", view.Status), http.StatusConflict)
		return
	}

	rep := report.FromResults(view.Results)
	confusion := make(map[string]map[string]int, len(report.Labels))
	for _, human := range report.Labels {
		row := make(map[string]int, len(report.Labels))
		for _, system := range report.Labels {
			row[system.String()] = rep.Count(human, system)
		}
		confusion[human.String()] = row
	}

	respondJSON(w, map[string]any{
		"batch_id":  id,
		"report":    rep,
		"confusion": confusion,
	}, http.StatusOK)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := withTimeout(r.Context(), h.timeout, func() (struct{}, error) {
		return struct{}{}, h.db.DeleteBatch(id)
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnlisted lists the most frequent tokens missing from the lexicon
func (h *Handler) handleUnlisted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := min(queryInt(r, "limit", 50, 1), 1000)

	terms, err := withTimeout(r.Context(), h.timeout, func() ([]models.UnlistedTerm, error) {
		return h.db.TopUnlistedTerms(limit)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, terms, http.StatusOK)
}

// fail maps err to a status code and writes the error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errTimeout):
		status = http.StatusRequestTimeout
	}
	if status >= http.StatusInternalServerError {
		tracing.RecordError(r.Context(), err)
		logging.HTTPErrorLogger(h.logger, status, err, r)
	}
	respondError(w, err.Error(), status)
}

// withTimeout runs fn in a goroutine and gives up after d or when ctx ends.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	var zero T
	select {
	case res := <-ch:
		return res.v, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-time.After(d):
		return zero, errTimeout
	}
}

func queryInt(r *http.Request, key string, def, minimum int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= minimum {
			return n
		}
	}
	return def
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}
