package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task type constants
const (
	TypeAnalyzeBatch = "polarity:analyze_batch"
)

// QueueBatchAnalysis is the queue batch tasks are sent to
const QueueBatchAnalysis = "batch-analysis"

// AnalyzeBatchPayload represents the payload for batch polarity analysis.
// Sentences stay in the database; the task only carries the batch ID.
type AnalyzeBatchPayload struct {
	BatchID string `json:"batch_id"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxRetry      int
	Timeout       time.Duration
}

// RedisOpt builds the connection options shared by client and worker.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		client:   asynq.NewClient(RedisOpt(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)),
		maxRetry: cfg.MaxRetry,
		timeout:  cfg.Timeout,
	}
}

// newAnalyzeBatchTask builds the task for batchID, capturing the trace
// context of ctx so the worker can continue it.
func newAnalyzeBatchTask(ctx context.Context, batchID string, now time.Time) (*asynq.Task, error) {
	payload := AnalyzeBatchPayload{
		BatchID:    batchID,
		EnqueuedAt: now.UnixNano(),
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeBatch),
			attribute.String("task.id", batchID),
			attribute.String("batch.id", batchID),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return asynq.NewTask(TypeAnalyzeBatch, payloadBytes, asynq.TaskID(batchID)), nil
}

func enqueueOptions(maxRetry int, timeout time.Duration) []asynq.Option {
	if maxRetry <= 0 {
		maxRetry = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return []asynq.Option{
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.Queue(QueueBatchAnalysis),
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}
}

// EnqueueAnalyzeBatch enqueues analysis of a stored batch. The batch ID is
// the task ID, so a batch cannot be queued twice while its task is retained.
func (c *Client) EnqueueAnalyzeBatch(ctx context.Context, batchID string) (string, error) {
	task, err := newAnalyzeBatchTask(ctx, batchID, time.Now())
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, enqueueOptions(c.maxRetry, c.timeout)...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue analyze batch task: %w", err)
	}

	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
