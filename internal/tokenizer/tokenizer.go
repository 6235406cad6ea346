// Package tokenizer splits Arabic text into normalized tokens.
//
// Text is normalized, split on whitespace runs and filtered: empty tokens,
// single-character tokens and stop words are dropped.
//
// Known limitations:
//   - No clitic segmentation. "والكتاب" stays one token.
//   - Single-letter words such as "و" are always discarded, even when a
//     lexicon lists them.
//   - Tokens split on any Unicode whitespace, so U+00A0 and U+2028 separate
//     words as well as ASCII spaces do.
package tokenizer

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zombar/arpolarity/internal/normalizer"
	"github.com/zombar/arpolarity/internal/stopwords"
)

// ErrNoStopWords is returned by New when no stop-word set is supplied.
var ErrNoStopWords = errors.New("tokenizer requires a stop-word set")

// Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	norm *normalizer.Normalizer
	stop *stopwords.Set
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithNormalizer overrides the default normalizer.
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(t *Tokenizer) {
		if n != nil {
			t.norm = n
		}
	}
}

// New creates a Tokenizer filtering the given stop words.
func New(stop *stopwords.Set, opts ...Option) (*Tokenizer, error) {
	if stop == nil {
		return nil, ErrNoStopWords
	}
	t := &Tokenizer{norm: normalizer.New(), stop: stop}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Normalizer returns the normalizer the tokenizer applies.
func (t *Tokenizer) Normalizer() *normalizer.Normalizer {
	return t.norm
}

// StopWords returns the stop-word set in use.
func (t *Tokenizer) StopWords() *stopwords.Set {
	return t.stop
}

// Tokenize returns the tokens of text in order, keeping duplicates.
func (t *Tokenizer) Tokenize(text string) []string {
	return t.Split(t.norm.Normalize(text))
}

// TokenizeUnique returns the distinct tokens of text sorted by code point.
func (t *Tokenizer) TokenizeUnique(text string) []string {
	tokens := t.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Split filters text that is already normalized.
func (t *Tokenizer) Split(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if t.stop.Contains(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
