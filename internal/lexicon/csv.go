package lexicon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zombar/arpolarity/internal/normalizer"
)

var (
	// ErrNoTermColumn is returned when no header cell contains "term" or "Term".
	ErrNoTermColumn = errors.New("unable to find term column, make sure the terms column header is Term")
	// ErrNoPolarityColumn is returned when no header cell equals "polarity".
	ErrNoPolarityColumn = errors.New("unable to find polarity column, make sure the polarity column header is Polarity")
)

// LoadStats summarizes a lexicon load.
type LoadStats struct {
	Rows         int           `json:"rows"`
	Added        int           `json:"added"`
	EmptyTerm    int           `json:"empty_term"`
	EmptyLabel   int           `json:"empty_label"`
	UnknownLabel int           `json:"unknown_label"`
	TooLong      int           `json:"too_long"`
	Tiers        [MaxWords]int `json:"tiers"`
}

// Skipped returns the number of rows that were not stored.
func (s LoadStats) Skipped() int {
	return s.Rows - s.Added
}

// LoadCSV reads a lexicon table. The first record is the header: the term
// column is the first cell containing "term" or "Term", the polarity column
// is the first other cell equal to "polarity" in any case. Cells are trimmed
// and rows missing a term or label are skipped.
func LoadCSV(r io.Reader, n *normalizer.Normalizer, logger *slog.Logger) (*Lexicon, LoadStats, error) {
	var stats LoadStats
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, ErrNoTermColumn
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read lexicon header: %w", err)
	}

	termIdx, polarityIdx := -1, -1
	for i, cell := range header {
		cell = strings.TrimPrefix(cell, "\ufeff")
		switch {
		case termIdx < 0 && (strings.Contains(cell, "term") || strings.Contains(cell, "Term")):
			termIdx = i
		case polarityIdx < 0 && strings.EqualFold(strings.TrimSpace(cell), "polarity"):
			polarityIdx = i
		}
	}
	if termIdx < 0 {
		return nil, stats, ErrNoTermColumn
	}
	if polarityIdx < 0 {
		return nil, stats, ErrNoPolarityColumn
	}

	b := NewBuilder(n)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read lexicon row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		term := cellAt(record, termIdx)
		if term == "" {
			stats.EmptyTerm++
			continue
		}
		label := cellAt(record, polarityIdx)
		if label == "" {
			stats.EmptyLabel++
			continue
		}

		switch b.AddReason(term, label) {
		case Accepted:
		case EmptyTerm:
			stats.EmptyTerm++
		case UnknownLabel:
			stats.UnknownLabel++
			logger.Debug("skipping lexicon row with unknown label", "term", term, "label", label)
		case TooLong:
			stats.TooLong++
			logger.Warn("skipping lexicon term longer than four words", "term", term)
		}
	}

	lex, err := b.Build()
	if err != nil {
		return nil, stats, err
	}

	for i := range stats.Tiers {
		stats.Tiers[i] = lex.TierLen(i + 1)
	}
	stats.Added = stats.Rows - stats.EmptyTerm - stats.EmptyLabel - stats.UnknownLabel - stats.TooLong

	logger.Info("lexicon loaded",
		"rows", stats.Rows,
		"terms", lex.Len(),
		"unigrams", stats.Tiers[0],
		"bigrams", stats.Tiers[1],
		"trigrams", stats.Tiers[2],
		"fourgrams", stats.Tiers[3],
		"skipped", stats.Skipped())

	return lex, stats, nil
}

// LoadFile opens path and reads it with LoadCSV.
func LoadFile(path string, n *normalizer.Normalizer, logger *slog.Logger) (*Lexicon, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open lexicon: %w", err)
	}
	defer f.Close()

	lex, stats, err := LoadCSV(f, n, logger)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load lexicon %s: %w", path, err)
	}
	return lex, stats, nil
}

func cellAt(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
