// Package normalizer canonicalizes Arabic text before lexicon matching.
//
// Normalization runs a fixed, ordered RuleSet:
//
//   - honorific signs and Quranic annotation marks are deleted
//   - tatweel is deleted
//   - tashkeel (short vowel marks, shadda, sukun, superscript alef) is deleted
//   - hamza-bearing letters and ta marbuta are rewritten to their bare forms
//   - Latin letters, punctuation, digits, symbols, brackets and emoji become spaces
//
// Deletions run before letter canonicalization, and canonicalization runs
// before any stripping, so canonicalized letters always survive.
//
// The output is never longer than the input. Normalize is idempotent and
// safe for concurrent use by multiple goroutines.
package normalizer

const (
	tatweel = '\u0640'

	alef            = '\u0627'
	alefMadda       = '\u0622'
	alefHamzaAbove  = '\u0623'
	alefHamzaBelow  = '\u0625'
	wawHamza        = '\u0624'
	waw             = '\u0648'
	yehHamza        = '\u0626'
	alefMaksura     = '\u0649'
	tehMarbuta      = '\u0629'
	heh             = '\u0647'
	superscriptAlef = '\u0670'
)

// emojiPattern covers pictographs, emoticons, transport and map symbols,
// miscellaneous symbols and dingbats.
const emojiPattern = `[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`

// punctuationPattern covers ASCII and Arabic punctuation plus a few
// decorative characters common in scraped reviews.
const punctuationPattern = `[\x{2B50}\x{2026}\x{25AA}\x{FFFD}!@#$%^&*()_+~{},.\\><'/\-=;:"\x{060C}\x{061F}]`

const digitPattern = `[0-9\x{0661}-\x{0669}]`

// symbolPattern holds currency signs, bullets, quotes and a few emoji that
// reached the corpus outside the ranges of emojiPattern. Two entries are
// character sequences and are replaced as a unit.
const symbolPattern = `\x{1F1F8}\x{1F1E6}|\x{066A}\x{061C}|` +
	`[\x{0660}\x{2022}\x{02DA}\x{00B0}\x{10E6}\x{E20C}\x{1F914}\x{1F919}\x{1F923}\x{1F926}` +
	`\x{00AB}\x{00BB}\x{FFE6}\x{00A3}\x{00D7}\x{300A}\x{201C}\x{2019}\x{2013}\x{061B}]`

const bracketPattern = `[\[\]|?]`

// DefaultRules returns the canonical Arabic rule set.
func DefaultRules() RuleSet {
	return RuleSet{
		DeleteRunes("honorific-and-quranic-marks", join(
			between('\u0610', '\u0614'),
			between('\u0615', '\u061A'),
			between('\u06D6', '\u06ED'),
		)...),
		DeleteRunes("tatweel", tatweel),
		DeleteRunes("tashkeel", join(
			between('\u064B', '\u065F'),
			[]rune{superscriptAlef},
		)...),
		MapRunes("canonical-letters", map[rune]rune{
			wawHamza:       waw,
			tehMarbuta:     heh,
			yehHamza:       alefMaksura,
			alefMadda:      alef,
			alefHamzaAbove: alef,
			alefHamzaBelow: alef,
		}),
		ReplacePattern("latin", `[a-zA-Z]`, " "),
		ReplacePattern("punctuation", punctuationPattern, " "),
		ReplacePattern("digits", digitPattern, " "),
		ReplacePattern("symbols", symbolPattern, " "),
		ReplacePattern("brackets", bracketPattern, " "),
		ReplacePattern("emoji", emojiPattern, " "),
	}
}

// Normalizer applies a RuleSet to text.
type Normalizer struct {
	rules RuleSet
	emoji Rule
}

// New creates a Normalizer with the default Arabic rules.
func New() *Normalizer {
	return NewWithRules(DefaultRules())
}

// NewWithRules creates a Normalizer running rules in order.
func NewWithRules(rules RuleSet) *Normalizer {
	rs := make(RuleSet, len(rules))
	copy(rs, rules)
	return &Normalizer{
		rules: rs,
		emoji: ReplacePattern("emoji", emojiPattern, " "),
	}
}

// Normalize runs every rule over text.
func (n *Normalizer) Normalize(text string) string {
	return n.rules.Apply(text)
}

// EraseEmojis replaces each emoji with a single space.
func (n *Normalizer) EraseEmojis(text string) string {
	return n.emoji.Apply(text)
}

// Rules returns a copy of the rule set.
func (n *Normalizer) Rules() RuleSet {
	rs := make(RuleSet, len(n.rules))
	copy(rs, n.rules)
	return rs
}

var std = New()

// Normalize normalizes text with the default rules.
func Normalize(text string) string {
	return std.Normalize(text)
}
