package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/arpolarity/internal/analyzer"
	"github.com/zombar/arpolarity/internal/database"
	"github.com/zombar/arpolarity/internal/models"
	"github.com/zombar/arpolarity/internal/report"
	"github.com/zombar/arpolarity/internal/tracing"
)

// handleAnalyzeBatch labels every sentence of a stored batch, saves the
// results and agreement figures, and records unlisted terms.
func (w *Worker) handleAnalyzeBatch(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", errors.Join(err, asynq.SkipRetry))
	}
	batchID := payload.BatchID

	retryCount, _ := asynq.GetRetryCount(ctx)

	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		queueWaitTime = time.Since(time.Unix(0, payload.EnqueuedAt))
		w.metrics.ObserveQueueWait(queueWaitTime)
	}

	w.logger.Info("processing batch",
		"batch_id", batchID,
		"retry_count", retryCount,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	attrs := []attribute.KeyValue{
		attribute.String("task.type", TypeAnalyzeBatch),
		attribute.String("batch.id", batchID),
		attribute.Int("retry_count", retryCount),
		attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
	}

	// Continue the trace of the request that enqueued the batch
	if remote, ok := tracing.RemoteContext(ctx, payload.TraceID, payload.SpanID); ok {
		var span trace.Span
		ctx, span = otel.Tracer("arpolarity").Start(remote, "asynq.task.process",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(append(attrs, attribute.Int64("enqueued_at", payload.EnqueuedAt))...),
		)
		defer span.End()

		span.AddEvent("task_processing_started", trace.WithAttributes(
			attribute.Float64("wait_time_seconds", queueWaitTime.Seconds()),
		))
	} else {
		tracing.SetSpanAttributes(ctx, attrs...)
	}

	start := time.Now()
	sentences, err := w.processBatch(ctx, batchID)
	if err != nil {
		tracing.RecordError(ctx, err)
		w.metrics.ObserveBatch(string(models.BatchFailed), 0, time.Since(start))
		return w.fail(ctx, batchID, err)
	}

	w.metrics.ObserveBatch(string(models.BatchCompleted), sentences, time.Since(start))
	w.logger.Info("batch completed",
		"batch_id", batchID,
		"sentences", sentences,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// processBatch runs the batch and returns the number of sentences analyzed.
func (w *Worker) processBatch(ctx context.Context, batchID string) (int, error) {
	if err := w.db.UpdateBatchStatus(batchID, models.BatchRunning, ""); err != nil {
		return 0, fmt.Errorf("failed to mark batch running: %w", err)
	}

	inputs, err := w.db.GetBatchSentences(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to load sentences: %w", err)
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Sentence
	}

	results, err := w.analyzer.AnalyzeAll(ctx, texts, w.workers)
	if err != nil {
		return 0, fmt.Errorf("failed to analyze batch: %w", err)
	}
	for _, r := range results {
		w.metrics.CountAnalysis(r.Polarity.String(), len(r.Unlisted))
	}

	records := analyzer.Records(inputs, results)
	if err := w.db.SaveBatchResults(batchID, records); err != nil {
		return 0, fmt.Errorf("failed to save results: %w", err)
	}

	rep := report.FromResults(records)
	tracing.SetSpanAttributes(ctx,
		attribute.Int("batch.sentences", len(records)),
		attribute.Int("agreement.compared", rep.Compared),
		attribute.Float64("agreement.accuracy", rep.Accuracy),
	)

	if err := w.db.CompleteBatch(batchID, rep.Agreement(), analyzer.UnlistedCounts(results), time.Now()); err != nil {
		return 0, fmt.Errorf("failed to mark batch completed: %w", err)
	}

	return len(records), nil
}

// fail decides between a retry and a permanent failure. Retriable storage
// errors put the batch back to pending while retries remain; anything else
// marks it failed and stops asynq from retrying.
func (w *Worker) fail(ctx context.Context, batchID string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		w.logger.Warn("batch no longer exists, dropping task", "batch_id", batchID)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	retried, okRetry := asynq.GetRetryCount(ctx)
	maxRetry, okMax := asynq.GetMaxRetry(ctx)
	if isRetriableStorageError(err) && okRetry && okMax && retried < maxRetry {
		w.logger.Warn("retriable error, will retry",
			"batch_id", batchID,
			"error", err,
			"retry_count", retried,
		)
		if uerr := w.db.UpdateBatchStatus(batchID, models.BatchPending, err.Error()); uerr != nil {
			w.logger.Error("failed to reset batch status", "batch_id", batchID, "error", uerr)
		}
		return err
	}

	w.logger.Error("permanent error processing batch", "batch_id", batchID, "error", err)
	if uerr := w.db.UpdateBatchStatus(batchID, models.BatchFailed, err.Error()); uerr != nil {
		w.logger.Error("failed to mark batch failed", "batch_id", batchID, "error", uerr)
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// isRetriableStorageError determines if an error is transient (connection,
// lock, timeout) rather than permanent
func isRetriableStorageError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"temporary failure",
		"database is locked",
		"sqlite_busy",
		"too many connections",
		"could not serialize access",
		"deadlock detected",
		"context deadline exceeded",
		"context canceled",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
