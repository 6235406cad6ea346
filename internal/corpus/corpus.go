// Package corpus reads sentence tables and writes result tables as CSV.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombar/arpolarity/internal/models"
)

// ErrNoSentenceColumn is returned when the header has no Sentence, Review
// or Comment column.
var ErrNoSentenceColumn = errors.New("unable to find sentence column, make sure the header is Sentence, Review or Comment")

var sentenceHeaders = []string{"sentence", "review", "comment"}

// ResultHeader is the header row of a result table.
var ResultHeader = []string{"Sentence", "System Polarity", "Human Polarity"}

var bom = []byte{0xEF, 0xBB, 0xBF}

// ReadSentences reads a sentence table. The header must name a sentence
// column (Sentence, Review or Comment, any case); a Polarity column is
// optional and supplies the human label. Cells are trimmed and rows with an
// empty sentence are kept so positions line up with the input.
func ReadSentences(r io.Reader) ([]models.BatchInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoSentenceColumn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	sentenceIdx, polarityIdx := -1, -1
	for i, cell := range header {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		switch {
		case sentenceIdx < 0 && isSentenceHeader(cell):
			sentenceIdx = i
		case polarityIdx < 0 && strings.EqualFold(cell, "polarity"):
			polarityIdx = i
		}
	}
	if sentenceIdx < 0 {
		return nil, ErrNoSentenceColumn
	}

	inputs := []models.BatchInput{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		in := models.BatchInput{Sentence: cellAt(record, sentenceIdx)}
		if polarityIdx >= 0 {
			in.HumanLabel = cellAt(record, polarityIdx)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// ReadSentencesFile opens path and reads it with ReadSentences.
func ReadSentencesFile(path string) ([]models.BatchInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sentences: %w", err)
	}
	defer f.Close()

	inputs, err := ReadSentences(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentences %s: %w", path, err)
	}
	return inputs, nil
}

// WriteResults writes a result table, prefixed with a UTF-8 byte order mark
// so spreadsheet tools detect the encoding.
func WriteResults(w io.Writer, results []models.SentenceResult) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ResultHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Sentence, r.SystemLabel, r.HumanLabel}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Position, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ResultFileName names a result file after the time it was produced.
func ResultFileName(t time.Time) string {
	return fmt.Sprintf("result-%d.csv", t.UnixMilli())
}

// WriteResultsFile writes results into dir under ResultFileName and returns
// the path written.
func WriteResultsFile(dir string, results []models.SentenceResult, now time.Time) (string, error) {
	path := filepath.Join(dir, ResultFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create result file: %w", err)
	}

	if err := WriteResults(f, results); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close result file: %w", err)
	}
	return path, nil
}

func isSentenceHeader(cell string) bool {
	for _, h := range sentenceHeaders {
		if strings.EqualFold(cell, h) {
			return true
		}
	}
	return false
}

func cellAt(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
