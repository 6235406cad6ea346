package normalizer

import (
	"regexp"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/rangetable"
)

// Rule is a single named step of a RuleSet.
type Rule struct {
	Name  string
	apply func(string) string
}

// Apply runs the rule over s.
func (r Rule) Apply(s string) string {
	if r.apply == nil {
		return s
	}
	return r.apply(s)
}

// RuleSet is an ordered sequence of rules. Rules run in slice order.
type RuleSet []Rule

// Apply runs every rule in order.
func (rs RuleSet) Apply(s string) string {
	for _, r := range rs {
		if s == "" {
			return s
		}
		s = r.Apply(s)
	}
	return s
}

// DeleteRunes builds a rule that drops every rune in rs.
func DeleteRunes(name string, rs ...rune) Rule {
	t := runes.Remove(runes.In(rangetable.New(rs...)))
	return Rule{Name: name, apply: func(s string) string { return transformString(t, s) }}
}

// MapRunes builds a rule that substitutes runes one for one.
func MapRunes(name string, table map[rune]rune) Rule {
	m := make(map[rune]rune, len(table))
	for from, to := range table {
		m[from] = to
	}
	t := runes.Map(func(r rune) rune {
		if to, ok := m[r]; ok {
			return to
		}
		return r
	})
	return Rule{Name: name, apply: func(s string) string { return transformString(t, s) }}
}

// ReplacePattern builds a rule that replaces every non-overlapping match of
// expr, left to right, with repl. It panics if expr does not compile.
func ReplacePattern(name, expr, repl string) Rule {
	re := regexp.MustCompile(expr)
	return Rule{Name: name, apply: func(s string) string { return re.ReplaceAllLiteralString(s, repl) }}
}

// transformString runs a stateless transformer. On failure the input is
// returned untouched so normalization stays total.
func transformString(t transform.Transformer, s string) string {
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// between returns every rune from lo to hi inclusive.
func between(lo, hi rune) []rune {
	rs := make([]rune, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		rs = append(rs, r)
	}
	return rs
}

func join(groups ...[]rune) []rune {
	var out []rune
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
