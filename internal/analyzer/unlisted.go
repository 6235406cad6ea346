package analyzer

import (
	"sort"
	"sync"
)

// UnlistedLog collects tokens that matched no lexicon unigram, in the order
// they were seen. It is safe for concurrent use.
type UnlistedLog struct {
	mu     sync.Mutex
	terms  []string
	counts map[string]int
}

// NewUnlistedLog returns an empty log.
func NewUnlistedLog() *UnlistedLog {
	return &UnlistedLog{counts: make(map[string]int)}
}

// Add appends terms to the log.
func (l *UnlistedLog) Add(terms ...string) {
	if len(terms) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	l.terms = append(l.terms, terms...)
	for _, t := range terms {
		l.counts[t]++
	}
}

// Len returns the number of recorded occurrences.
func (l *UnlistedLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.terms)
}

// Snapshot returns a copy of every recorded occurrence in order.
func (l *UnlistedLog) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// TermCount is a term and how often it was recorded.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Counts returns each distinct term with its occurrences, most frequent
// first.
func (l *UnlistedLog) Counts() []TermCount {
	l.mu.Lock()
	out := make([]TermCount, 0, len(l.counts))
	for t, c := range l.counts {
		out = append(out, TermCount{Term: t, Count: c})
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	return out
}
