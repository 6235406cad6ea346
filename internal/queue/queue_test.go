package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

// TestAnalyzeBatchPayload tests the AnalyzeBatchPayload wire format
func TestAnalyzeBatchPayload(t *testing.T) {
	payload := AnalyzeBatchPayload{
		BatchID:    "batch-123",
		EnqueuedAt: 42,
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"batch_id":"batch-123","enqueued_at":42}`, string(data))
}

// TestIsRetriableStorageError tests error classification
func TestIsRetriableStorageError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Connection refused error",
			err:      errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			expected: true,
		},
		{
			name:     "SQLite busy",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			expected: true,
		},
		{
			name:     "Serialization failure",
			err:      errors.New("pq: could not serialize access due to concurrent update"),
			expected: true,
		},
		{
			name:     "Context canceled",
			err:      errors.New("failed to analyze batch: context canceled"),
			expected: true,
		},
		{
			name:     "Constraint violation",
			err:      errors.New("UNIQUE constraint failed: batch_results.batch_id"),
			expected: false,
		},
		{
			name:     "Generic error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetriableStorageError(tt.err)
			assert.Equal(t, tt.expected, result, "Error: %v", tt.err)
		})
	}
}

// TestRetryDelay tests the retry backoff schedule
func TestRetryDelay(t *testing.T) {
	task := asynq.NewTask(TypeAnalyzeBatch, []byte(`{}`))
	testErr := errors.New("connection refused")

	expected := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		15 * time.Minute,
		15 * time.Minute,
	}

	for i, want := range expected {
		assert.Equal(t, want, retryDelay(i, testErr, task), "Retry %d", i)
	}
}

func TestEnqueueOptionsDefaults(t *testing.T) {
	assert.Len(t, enqueueOptions(0, 0), 4)

	opts := enqueueOptions(5, time.Minute)
	var sawQueue bool
	for _, o := range opts {
		if o.Type() == asynq.QueueOpt {
			sawQueue = true
			assert.Equal(t, QueueBatchAnalysis, o.Value())
		}
		if o.Type() == asynq.MaxRetryOpt {
			assert.Equal(t, 5, o.Value())
		}
		if o.Type() == asynq.TimeoutOpt {
			assert.Equal(t, time.Minute, o.Value())
		}
	}
	assert.True(t, sawQueue)
}

// TestTaskTypeConstants tests that task type constants are defined correctly
func TestTaskTypeConstants(t *testing.T) {
	assert.Equal(t, "polarity:analyze_batch", TypeAnalyzeBatch)
	assert.Equal(t, "batch-analysis", QueueBatchAnalysis)
}
