package database

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/zombar/arpolarity/internal/models"
)

// CreateBatch saves a batch together with its sentences
func (db *DB) CreateBatch(batch *models.Batch) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(db.rebind(`
		INSERT INTO batches (id, name, status, sentence_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), batch.ID, batch.Name, string(batch.Status), len(batch.Sentences), batch.LastError,
		batch.CreatedAt.UTC(), batch.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	insert := db.rebind(`
		INSERT INTO batch_sentences (batch_id, position, sentence, human_label)
		VALUES (?, ?, ?, ?)
	`)
	for i, s := range batch.Sentences {
		if _, err := tx.Exec(insert, batch.ID, i, s.Sentence, s.HumanLabel); err != nil {
			return fmt.Errorf("failed to insert sentence %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	batch.SentenceCount = len(batch.Sentences)
	return nil
}

const batchColumns = `id, name, status, sentence_count, last_error, created_at, updated_at, completed_at,
	compared, accuracy, kappa`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*models.Batch, error) {
	var (
		b           models.Batch
		status      string
		completedAt sql.NullTime
		agreement   models.Agreement
	)
	if err := row.Scan(&b.ID, &b.Name, &status, &b.SentenceCount, &b.LastError,
		&b.CreatedAt, &b.UpdatedAt, &completedAt,
		&agreement.Compared, &agreement.Accuracy, &agreement.Kappa); err != nil {
		return nil, err
	}
	b.Status = models.BatchStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	if agreement.Compared > 0 {
		b.Agreement = &agreement
	}
	return &b, nil
}

// GetBatch retrieves a batch by ID without its sentences
func (db *DB) GetBatch(id string) (*models.Batch, error) {
	row := db.conn.QueryRow(db.rebind(`SELECT `+batchColumns+` FROM batches WHERE id = ?`), id)

	batch, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListBatches retrieves batches newest first with pagination
func (db *DB) ListBatches(limit, offset int) ([]*models.Batch, error) {
	rows, err := db.conn.Query(db.rebind(`
		SELECT `+batchColumns+`
		FROM batches
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := []*models.Batch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return batches, nil
}

// GetBatchSentences returns the sentences of a batch in submission order
func (db *DB) GetBatchSentences(id string) ([]models.BatchInput, error) {
	if _, err := db.GetBatch(id); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(db.rebind(`
		SELECT sentence, human_label
		FROM batch_sentences
		WHERE batch_id = ?
		ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentences: %w", err)
	}
	defer rows.Close()

	sentences := []models.BatchInput{}
	for rows.Next() {
		var s models.BatchInput
		if err := rows.Scan(&s.Sentence, &s.HumanLabel); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sentences = append(sentences, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sentences, nil
}

// SaveBatchResults replaces the stored results of a batch
func (db *DB) SaveBatchResults(id string, results []models.SentenceResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(db.rebind("DELETE FROM batch_results WHERE batch_id = ?"), id); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	insert := db.rebind(`
		INSERT INTO batch_results (batch_id, position, system_label, positive, negative)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, r := range results {
		if _, err := tx.Exec(insert, id, r.Position, r.SystemLabel, r.Positive, r.Negative); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBatchResults returns the stored results of a batch joined with their sentences
func (db *DB) GetBatchResults(id string) ([]models.SentenceResult, error) {
	rows, err := db.conn.Query(db.rebind(`
		SELECT r.position, s.sentence, r.system_label, s.human_label, r.positive, r.negative
		FROM batch_results r
		INNER JOIN batch_sentences s ON s.batch_id = r.batch_id AND s.position = r.position
		WHERE r.batch_id = ?
		ORDER BY r.position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []models.SentenceResult{}
	for rows.Next() {
		var r models.SentenceResult
		if err := rows.Scan(&r.Position, &r.Sentence, &r.SystemLabel, &r.HumanLabel, &r.Positive, &r.Negative); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// UpdateBatchStatus moves a batch to status. Completed and failed batches get a completion time.
func (db *DB) UpdateBatchStatus(id string, status models.BatchStatus, lastError string) error {
	now := time.Now().UTC()

	var completedAt any
	if status == models.BatchCompleted || status == models.BatchFailed {
		completedAt = now
	}

	result, err := db.conn.Exec(db.rebind(`
		UPDATE batches
		SET status = ?, last_error = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`), string(status), lastError, now, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	return expectRow(result)
}

// SetBatchAgreement stores agreement figures for a batch
func (db *DB) SetBatchAgreement(id string, a models.Agreement) error {
	result, err := db.conn.Exec(db.rebind(`
		UPDATE batches
		SET compared = ?, accuracy = ?, kappa = ?, updated_at = ?
		WHERE id = ?
	`), a.Compared, a.Accuracy, a.Kappa, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch agreement: %w", err)
	}

	return expectRow(result)
}

// DeleteBatch deletes a batch with its sentences and results
func (db *DB) DeleteBatch(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"batch_results", "batch_sentences"} {
		if _, err := tx.Exec(db.rebind("DELETE FROM "+table+" WHERE batch_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.Exec(db.rebind("DELETE FROM batches WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountBatchesByStatus returns how many batches are in each status
func (db *DB) CountBatchesByStatus() (map[models.BatchStatus]int, error) {
	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM batches GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BatchStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[models.BatchStatus(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// RecordUnlistedTerms adds occurrence counts for terms missing from the lexicon
func (db *DB) RecordUnlistedTerms(counts map[string]int, seen time.Time) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.upsertUnlisted(tx, counts, seen); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CompleteBatch adds the batch's unlisted term counts, stores its agreement
// and marks it completed in one transaction. A failed call leaves no counts
// behind, so the batch can be run again.
func (db *DB) CompleteBatch(id string, a models.Agreement, unlisted map[string]int, now time.Time) error {
	now = now.UTC()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.upsertUnlisted(tx, unlisted, now); err != nil {
		return err
	}

	result, err := tx.Exec(db.rebind(`
		UPDATE batches
		SET status = ?, last_error = '', compared = ?, accuracy = ?, kappa = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`), string(models.BatchCompleted), a.Compared, a.Accuracy, a.Kappa, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (db *DB) upsertUnlisted(tx *sql.Tx, counts map[string]int, seen time.Time) error {
	seen = seen.UTC()

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	// Stable lock order across concurrent workers.
	sort.Strings(terms)

	upsert := db.rebind(`
		INSERT INTO unlisted_terms (term, occurrences, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (term) DO UPDATE SET
			occurrences = unlisted_terms.occurrences + excluded.occurrences,
			last_seen = excluded.last_seen
	`)
	for _, term := range terms {
		if _, err := tx.Exec(upsert, term, counts[term], seen, seen); err != nil {
			return fmt.Errorf("failed to record unlisted term: %w", err)
		}
	}
	return nil
}

// TopUnlistedTerms returns the most frequent unlisted terms
func (db *DB) TopUnlistedTerms(limit int) ([]models.UnlistedTerm, error) {
	rows, err := db.conn.Query(db.rebind(`
		SELECT term, occurrences, first_seen, last_seen
		FROM unlisted_terms
		ORDER BY occurrences DESC, term
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlisted terms: %w", err)
	}
	defer rows.Close()

	terms := []models.UnlistedTerm{}
	for rows.Next() {
		var t models.UnlistedTerm
		if err := rows.Scan(&t.Term, &t.Occurrences, &t.FirstSeen, &t.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		terms = append(terms, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return terms, nil
}

func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
