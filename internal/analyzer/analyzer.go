// Package analyzer scores the polarity of Arabic sentences against a
// multi-word lexicon.
//
// A sentence is normalized and matched as is. Four-word terms are matched
// first, then three- and two-word terms: each term found in the
// text counts once toward its polarity and every occurrence is cut out of
// the text, so shorter terms cannot match inside it. What remains is
// tokenized and each token is looked up as a single word. More positive than
// negative hits gives Pos, more negative gives Neg, anything else Neut.
//
// Known limitations:
//   - Terms are matched as substrings, not on word boundaries, so a term
//     can match inside a longer word.
//   - A term repeated in a sentence counts once.
//   - Punctuation and digits normalize to spaces, so a phrase split by them
//     no longer matches and its words are scored one by one.
//   - Negation is only handled when the lexicon lists the negated phrase.
//
// An Analyzer is safe for concurrent use by multiple goroutines.
package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zombar/arpolarity/internal/lexicon"
	"github.com/zombar/arpolarity/internal/tokenizer"
)

var (
	ErrNoLexicon   = errors.New("analyzer requires a lexicon")
	ErrNoTokenizer = errors.New("analyzer requires a tokenizer")
)

// Match is a lexicon term found in a sentence.
type Match struct {
	Term     string           `json:"term"`
	Tier     int              `json:"tier"`
	Polarity lexicon.Polarity `json:"polarity"`
}

// Result holds the outcome of analyzing one sentence.
type Result struct {
	Polarity lexicon.Polarity `json:"polarity"`
	Positive int              `json:"positive"`
	Negative int              `json:"negative"`
	Matches  []Match          `json:"matches"`
	Unlisted []string         `json:"unlisted"`
}

// String returns a debug representation of the result.
func (r Result) String() string {
	return fmt.Sprintf("%s(pos=%d, neg=%d, matches=%d, unlisted=%d)",
		r.Polarity, r.Positive, r.Negative, len(r.Matches), len(r.Unlisted))
}

func (r *Result) count(term string, tier int, p lexicon.Polarity) {
	switch p {
	case lexicon.Positive:
		r.Positive++
	case lexicon.Negative:
		r.Negative++
	default:
		return
	}
	r.Matches = append(r.Matches, Match{Term: term, Tier: tier, Polarity: p})
}

func (r *Result) decide() {
	switch {
	case r.Positive > r.Negative:
		r.Polarity = lexicon.Positive
	case r.Negative > r.Positive:
		r.Polarity = lexicon.Negative
	default:
		r.Polarity = lexicon.Neutral
	}
}

// Analyzer scores sentences. It holds no per-call state.
type Analyzer struct {
	lex *lexicon.Lexicon
	tok *tokenizer.Tokenizer
	log *UnlistedLog

	// phrases holds the entries of tiers 4, 3 and 2 in matching order.
	phrases [lexicon.MaxWords - 1][]lexicon.Entry
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithUnlistedLog records every token that is not a lexicon unigram.
func WithUnlistedLog(l *UnlistedLog) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

// New creates an Analyzer over lex, tokenizing with tok.
func New(lex *lexicon.Lexicon, tok *tokenizer.Tokenizer, opts ...Option) (*Analyzer, error) {
	if lex == nil {
		return nil, ErrNoLexicon
	}
	if tok == nil {
		return nil, ErrNoTokenizer
	}

	a := &Analyzer{lex: lex, tok: tok}
	for i := range a.phrases {
		a.phrases[i] = lex.Entries(lexicon.MaxWords - i)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// UnlistedLog returns the configured log, or nil.
func (a *Analyzer) UnlistedLog() *UnlistedLog {
	return a.log
}

// Lexicon returns the lexicon the analyzer scores against.
func (a *Analyzer) Lexicon() *lexicon.Lexicon {
	return a.lex
}

// Tokenizer returns the tokenizer used for single-word lookup.
func (a *Analyzer) Tokenizer() *tokenizer.Tokenizer {
	return a.tok
}

// Analyze scores a single sentence. It never fails; empty input is Neut.
func (a *Analyzer) Analyze(sentence string) Result {
	res := a.analyze(sentence)
	if a.log != nil && len(res.Unlisted) > 0 {
		a.log.Add(res.Unlisted...)
	}
	return res
}

// Label returns only the polarity of sentence.
func (a *Analyzer) Label(sentence string) lexicon.Polarity {
	return a.Analyze(sentence).Polarity
}

func (a *Analyzer) analyze(sentence string) Result {
	var res Result

	text := a.tok.Normalizer().Normalize(sentence)

	for i, entries := range a.phrases {
		tier := lexicon.MaxWords - i
		for _, e := range entries {
			if text == "" {
				break
			}
			if !strings.Contains(text, e.Term) {
				continue
			}
			text = strings.ReplaceAll(text, e.Term, "")
			res.count(e.Term, tier, e.Polarity)
		}
	}

	if text != "" {
		for _, token := range a.tok.Split(text) {
			if p, ok := a.lex.Lookup(1, token); ok {
				res.count(token, 1, p)
				continue
			}
			res.Unlisted = append(res.Unlisted, token)
		}
	}

	res.decide()
	return res
}
