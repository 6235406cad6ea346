// Package stopwords builds the stop-word set used by the tokenizer.
//
// A list is read one word per line. Each line is normalized with the same
// rules applied to sentences and trimmed, so membership is decided on
// normalized forms. Lines that normalize to nothing are dropped.
//
// A bundled Arabic list is used unless a file is configured.
package stopwords

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/zombar/arpolarity/internal/normalizer"
)

//go:embed stop_words.txt
var bundled []byte

// ErrEmpty is returned when a list yields no stop words.
var ErrEmpty = errors.New("stop-word list is empty")

// Set is an immutable set of normalized stop words.
type Set struct {
	words map[string]struct{}
}

// Contains reports whether token is a stop word. Token must already be
// normalized. A nil Set contains nothing.
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[token]
	return ok
}

// Len returns the number of distinct stop words.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the stop words sorted.
func (s *Set) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// New builds a Set from already normalized words.
func New(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Load reads a newline separated list from r, normalizing every line with n.
// A nil normalizer uses the default rules.
func Load(r io.Reader, n *normalizer.Normalizer) (*Set, error) {
	if n == nil {
		n = normalizer.New()
	}

	s := &Set{words: make(map[string]struct{})}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.TrimSpace(n.Normalize(scanner.Text()))
		if w == "" {
			continue
		}
		s.words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stop words: %w", err)
	}
	if len(s.words) == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

// LoadFile reads a stop-word list from path.
func LoadFile(path string, n *normalizer.Normalizer) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stop-word list: %w", err)
	}
	defer f.Close()

	s, err := Load(f, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// Default loads the bundled Arabic list.
func Default(n *normalizer.Normalizer) (*Set, error) {
	return Load(bytes.NewReader(bundled), n)
}
