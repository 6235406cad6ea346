// Package lexicon holds the multi-word polarity lexicon.
//
// Terms are normalized and trimmed at ingestion and stored in one of four
// tiers by word count. Inner spacing is kept as normalized. Only positive and negative terms are
// kept. A Lexicon is immutable once built and safe for concurrent use.
package lexicon

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zombar/arpolarity/internal/normalizer"
)

// MaxWords is the longest term, in words, a lexicon stores.
const MaxWords = 4

// ErrEmptyLexicon is returned when a lexicon would hold no terms.
var ErrEmptyLexicon = errors.New("lexicon has no terms")

// Entry is a single term of a tier.
type Entry struct {
	Term     string   `json:"term"`
	Polarity Polarity `json:"polarity"`
}

// Lexicon maps normalized terms to their polarity, split by word count.
type Lexicon struct {
	tiers [MaxWords]map[string]Polarity
	order [MaxWords][]Entry
}

// Lookup returns the polarity of a normalized term in the given tier.
func (l *Lexicon) Lookup(tier int, term string) (Polarity, bool) {
	if tier < 1 || tier > MaxWords {
		return Neutral, false
	}
	p, ok := l.tiers[tier-1][term]
	return p, ok
}

// Entries returns the terms of a tier, longest first, ties broken by code
// point order. The returned slice is a copy.
func (l *Lexicon) Entries(tier int) []Entry {
	if tier < 1 || tier > MaxWords {
		return nil
	}
	out := make([]Entry, len(l.order[tier-1]))
	copy(out, l.order[tier-1])
	return out
}

// TierLen returns the number of terms in a tier.
func (l *Lexicon) TierLen(tier int) int {
	if tier < 1 || tier > MaxWords {
		return 0
	}
	return len(l.tiers[tier-1])
}

// Len returns the number of terms across all tiers.
func (l *Lexicon) Len() int {
	n := 0
	for _, t := range l.tiers {
		n += len(t)
	}
	return n
}

// Reason explains why Builder rejected a pair.
type Reason int

const (
	Accepted Reason = iota
	EmptyTerm
	UnknownLabel
	TooLong
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case EmptyTerm:
		return "empty term"
	case UnknownLabel:
		return "unknown label"
	case TooLong:
		return "too many words"
	}
	return "unknown"
}

// Builder accumulates (term, label) pairs. Later pairs overwrite earlier
// ones with the same normalized term. Builder is not safe for concurrent use.
type Builder struct {
	norm  *normalizer.Normalizer
	tiers [MaxWords]map[string]Polarity
}

// NewBuilder returns a Builder normalizing terms with n, or with the default
// rules when n is nil.
func NewBuilder(n *normalizer.Normalizer) *Builder {
	if n == nil {
		n = normalizer.New()
	}
	b := &Builder{norm: n}
	for i := range b.tiers {
		b.tiers[i] = make(map[string]Polarity)
	}
	return b
}

// Add ingests a pair and reports whether it was stored.
func (b *Builder) Add(term, label string) bool {
	return b.AddReason(term, label) == Accepted
}

// AddReason ingests a pair and reports the outcome.
func (b *Builder) AddReason(term, label string) Reason {
	p, ok := ParsePolarity(label)
	if !ok || p == Neutral {
		return UnknownLabel
	}

	key := strings.TrimSpace(b.norm.Normalize(term))
	words := strings.Fields(key)
	switch {
	case len(words) == 0:
		return EmptyTerm
	case len(words) > MaxWords:
		return TooLong
	}

	b.tiers[len(words)-1][key] = p
	return Accepted
}

// Len returns the number of distinct terms added so far.
func (b *Builder) Len() int {
	n := 0
	for _, t := range b.tiers {
		n += len(t)
	}
	return n
}

// Build freezes the accumulated terms. The Builder may keep being used; the
// returned Lexicon does not observe later additions.
func (b *Builder) Build() (*Lexicon, error) {
	if b.Len() == 0 {
		return nil, ErrEmptyLexicon
	}

	l := &Lexicon{}
	for i, t := range b.tiers {
		l.tiers[i] = make(map[string]Polarity, len(t))
		entries := make([]Entry, 0, len(t))
		for term, p := range t {
			l.tiers[i][term] = p
			entries = append(entries, Entry{Term: term, Polarity: p})
		}
		sort.Slice(entries, func(a, c int) bool {
			la, lc := utf8.RuneCountInString(entries[a].Term), utf8.RuneCountInString(entries[c].Term)
			if la != lc {
				return la > lc
			}
			return entries[a].Term < entries[c].Term
		})
		l.order[i] = entries
	}
	return l, nil
}

// FromEntries builds a Lexicon from raw (term, label) pairs.
func FromEntries(n *normalizer.Normalizer, pairs map[string]string) (*Lexicon, error) {
	b := NewBuilder(n)
	for term, label := range pairs {
		b.Add(term, label)
	}
	return b.Build()
}
