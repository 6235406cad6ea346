package analyzer

import "github.com/zombar/arpolarity/internal/models"

// Records pairs batch inputs with their results, position by position.
// Both slices must have the same length.
func Records(inputs []models.BatchInput, results []Result) []models.SentenceResult {
	out := make([]models.SentenceResult, len(results))
	for i, r := range results {
		out[i] = models.SentenceResult{
			Position:    i,
			Sentence:    inputs[i].Sentence,
			SystemLabel: r.Polarity.String(),
			HumanLabel:  inputs[i].HumanLabel,
			Positive:    r.Positive,
			Negative:    r.Negative,
		}
	}
	return out
}

// UnlistedCounts tallies the unlisted tokens of results.
func UnlistedCounts(results []Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		for _, term := range r.Unlisted {
			counts[term]++
		}
	}
	return counts
}
