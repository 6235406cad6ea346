package analyzer

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/zombar/arpolarity/internal/lexicon"
	"github.com/zombar/arpolarity/internal/normalizer"
)

var vocabulary = []string{
	"ممتاز", "جيد", "رائع", "سيء", "جدا", "غير", "ليس", "لم", "يعجبني", "على",
	"الاطلاق", "هذا", "الفيلم", "و", "!", "👍", "١٢", "مُمتاز", "أحمد",
}

func sentenceGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		words := rapid.SliceOfN(rapid.SampledFrom(vocabulary), 0, 12).Draw(t, "words")
		sep := rapid.SampledFrom([]string{" ", "  ", "\t", "، "}).Draw(t, "sep")
		return strings.Join(words, sep)
	})
}

func TestAnalyzeLabelMatchesCounts(t *testing.T) {
	a := newTestAnalyzer(t)

	rapid.Check(t, func(t *rapid.T) {
		s := sentenceGen().Draw(t, "sentence")
		res := a.Analyze(s)

		var want lexicon.Polarity
		switch {
		case res.Positive > res.Negative:
			want = lexicon.Positive
		case res.Negative > res.Positive:
			want = lexicon.Negative
		default:
			want = lexicon.Neutral
		}
		if res.Polarity != want {
			t.Fatalf("Analyze(%q) = %s with %d/%d", s, res.Polarity, res.Positive, res.Negative)
		}
		if len(res.Matches) != res.Positive+res.Negative {
			t.Fatalf("Analyze(%q): %d matches for %d hits", s, len(res.Matches), res.Positive+res.Negative)
		}
	})
}

func TestAnalyzeNormalizationInvariant(t *testing.T) {
	a := newTestAnalyzer(t)

	rapid.Check(t, func(t *rapid.T) {
		s := sentenceGen().Draw(t, "sentence")
		raw := a.Analyze(s)
		norm := a.Analyze(normalizer.Normalize(s))
		if raw.String() != norm.String() {
			t.Fatalf("Analyze(%q) = %v, but normalized input gives %v", s, raw, norm)
		}
	})
}

func TestAnalyzeTotal(t *testing.T) {
	a := newTestAnalyzer(t)

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		res := a.Analyze(s)
		if res.Positive < 0 || res.Negative < 0 {
			t.Fatalf("negative counts for %q: %v", s, res)
		}
	})
}

func FuzzAnalyze(f *testing.F) {
	for _, s := range []string{"", "ممتاز", "الفيلم سيء جدا", "هذا غير جيد", "👍👍", "\xff"} {
		f.Add(s)
	}
	a := newTestAnalyzer(f)

	f.Fuzz(func(t *testing.T, s string) {
		res := a.Analyze(s)
		switch res.Polarity {
		case lexicon.Positive, lexicon.Negative, lexicon.Neutral:
		default:
			t.Fatalf("unexpected polarity %d for %q", res.Polarity, s)
		}
	})
}
