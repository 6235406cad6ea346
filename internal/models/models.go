package models

import "time"

// BatchStatus tracks a batch through the queue
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Valid reports whether s is a known status
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchPending, BatchRunning, BatchCompleted, BatchFailed:
		return true
	}
	return false
}

// Batch is a set of sentences submitted for polarity analysis
type Batch struct {
	ID            string       `json:"id"`
	Name          string       `json:"name,omitempty"`
	Status        BatchStatus  `json:"status"`
	SentenceCount int          `json:"sentence_count"`
	Agreement     *Agreement   `json:"agreement,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	Sentences     []BatchInput `json:"sentences,omitempty"`
}

// BatchInput is one sentence of a batch with its optional human label
type BatchInput struct {
	Sentence   string `json:"sentence"`
	HumanLabel string `json:"human_label,omitempty"`
}

// SentenceResult is the stored outcome for one sentence of a batch
type SentenceResult struct {
	Position    int    `json:"position"`
	Sentence    string `json:"sentence"`
	SystemLabel string `json:"system_label"`
	HumanLabel  string `json:"human_label,omitempty"`
	Positive    int    `json:"positive"`
	Negative    int    `json:"negative"`
}

// Agreement summarizes how system labels compare to human labels
type Agreement struct {
	Compared int     `json:"compared"`
	Accuracy float64 `json:"accuracy"`
	Kappa    float64 `json:"kappa"`
}

// UnlistedTerm is a token seen in analyzed text but missing from the lexicon
type UnlistedTerm struct {
	Term        string    `json:"term"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}
