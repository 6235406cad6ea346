// Package report measures agreement between system and human polarity
// labels.
package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/zombar/arpolarity/internal/lexicon"
	"github.com/zombar/arpolarity/internal/models"
)

// Labels is the row and column order of the confusion matrix.
var Labels = []lexicon.Polarity{lexicon.Positive, lexicon.Negative, lexicon.Neutral}

func index(p lexicon.Polarity) int {
	for i, l := range Labels {
		if l == p {
			return i
		}
	}
	return -1
}

// Pair is one sentence's system label and human label.
type Pair struct {
	System string
	Human  string
}

// LabelStats holds per-label precision, recall and F1.
type LabelStats struct {
	Label     lexicon.Polarity `json:"label"`
	Precision float64          `json:"precision"`
	Recall    float64          `json:"recall"`
	F1        float64          `json:"f1"`
	Support   int              `json:"support"`
}

// Report is the agreement summary of a set of pairs.
type Report struct {
	// Confusion counts pairs by human label (rows) and system label
	// (columns), both in Labels order.
	Confusion *mat.Dense   `json:"-"`
	Compared  int          `json:"compared"`
	Skipped   int          `json:"skipped"`
	Accuracy  float64      `json:"accuracy"`
	Kappa     float64      `json:"kappa"`
	PerLabel  []LabelStats `json:"per_label"`
}

// Compare builds a Report. Pairs where either label is not exactly "Pos",
// "Neg" or "Neut" are skipped.
func Compare(pairs []Pair) *Report {
	n := len(Labels)
	r := &Report{Confusion: mat.NewDense(n, n, nil)}

	for _, p := range pairs {
		hp, okH := lexicon.ParsePolarity(p.Human)
		sp, okS := lexicon.ParsePolarity(p.System)
		if !okH || !okS {
			r.Skipped++
			continue
		}
		i, j := index(hp), index(sp)
		r.Confusion.Set(i, j, r.Confusion.At(i, j)+1)
		r.Compared++
	}

	r.PerLabel = make([]LabelStats, n)
	for i, l := range Labels {
		r.PerLabel[i].Label = l
	}
	if r.Compared == 0 {
		return r
	}

	total := float64(r.Compared)
	observed := mat.Trace(r.Confusion) / total
	r.Accuracy = observed

	var expected float64
	for i := range Labels {
		tp := r.Confusion.At(i, i)
		actual := mat.Sum(r.Confusion.RowView(i))
		predicted := mat.Sum(r.Confusion.ColView(i))

		s := &r.PerLabel[i]
		s.Support = int(actual)
		s.Precision = ratio(tp, predicted)
		s.Recall = ratio(tp, actual)
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}

		expected += (actual / total) * (predicted / total)
	}

	switch {
	case expected < 1:
		r.Kappa = (observed - expected) / (1 - expected)
	case observed == 1:
		// Both raters used a single label for everything.
		r.Kappa = 1
	}

	return r
}

// FromResults compares the stored system and human labels of results.
func FromResults(results []models.SentenceResult) *Report {
	pairs := make([]Pair, len(results))
	for i, r := range results {
		pairs[i] = Pair{System: r.SystemLabel, Human: r.HumanLabel}
	}
	return Compare(pairs)
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Agreement returns the stored summary of r.
func (r *Report) Agreement() models.Agreement {
	return models.Agreement{Compared: r.Compared, Accuracy: r.Accuracy, Kappa: r.Kappa}
}

// Count returns the number of pairs with the given human and system labels.
func (r *Report) Count(human, system lexicon.Polarity) int {
	i, j := index(human), index(system)
	if i < 0 || j < 0 {
		return 0
	}
	return int(r.Confusion.At(i, j))
}

// WriteSummary prints a human-readable summary to w.
func (r *Report) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "compared: %d  skipped: %d\naccuracy: %.4f  kappa: %.4f\n",
		r.Compared, r.Skipped, r.Accuracy, r.Kappa); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "confusion (rows human, columns system: Pos Neg Neut)\n%v\n",
		mat.Formatted(r.Confusion, mat.Prefix(""), mat.Squeeze())); err != nil {
		return err
	}
	for _, s := range r.PerLabel {
		if _, err := fmt.Fprintf(w, "%-4s precision=%.4f recall=%.4f f1=%.4f support=%d\n",
			s.Label, s.Precision, s.Recall, s.F1, s.Support); err != nil {
			return err
		}
	}
	return nil
}
