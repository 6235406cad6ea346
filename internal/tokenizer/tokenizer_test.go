package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/arpolarity/internal/normalizer"
	"github.com/zombar/arpolarity/internal/stopwords"
)

func newTokenizer(t *testing.T, stop ...string) *Tokenizer {
	t.Helper()
	tok, err := New(stopwords.New(stop...))
	require.NoError(t, err)
	return tok
}

func TestTokenize(t *testing.T) {
	tok := newTokenizer(t, "هذا", "في")

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"keeps duplicates in order", "كتاب قلم كتاب", []string{"كتاب", "قلم", "كتاب"}},
		{"drops stop words", "هذا ممتاز", []string{"ممتاز"}},
		{"drops single characters", "و ممتاز", []string{"ممتاز"}},
		{"normalizes before matching", "هَذا الفيلمُ رائعٌ", []string{"الفيلم", "راىع"}},
		{"punctuation splits tokens", "جميل،رائع", []string{"جميل", "راىع"}},
		{"tabs and newlines", "جميل\tجدا\nرائع", []string{"جميل", "جدا", "راىع"}},
		{"stop word after normalization", "فِي البيت", []string{"البيت"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Tokenize(tt.input))
		})
	}
}

func TestTokenizeUnique(t *testing.T) {
	tok := newTokenizer(t)

	assert.Equal(t, []string{"قلم", "كتاب"}, tok.TokenizeUnique("كتاب قلم كتاب"))
	assert.Empty(t, tok.TokenizeUnique(""))
}

func TestTokenizeNeverReturnsStopWords(t *testing.T) {
	stop, err := stopwords.Default(nil)
	require.NoError(t, err)
	tok, err := New(stop)
	require.NoError(t, err)

	for _, word := range stop.Words() {
		assert.Empty(t, tok.Tokenize(word), "stop word %q leaked", word)
	}
}

func TestSplitOnUnicodeWhitespace(t *testing.T) {
	tok := newTokenizer(t, "في")
	assert.True(t, tok.StopWords().Contains("في"))

	assert.Equal(t, []string{"جيد", "جدا"}, tok.Split("جيد\u00a0جدا"))
	assert.Equal(t, []string{"جيد", "جدا"}, tok.Split("جيد\u2028جدا"))
}

func TestNewRequiresStopWords(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoStopWords)
}

func TestWithNormalizer(t *testing.T) {
	n := normalizer.NewWithRules(normalizer.RuleSet{
		normalizer.ReplacePattern("commas", `,`, " "),
	})
	tok, err := New(stopwords.New(), WithNormalizer(n))
	require.NoError(t, err)

	assert.Equal(t, []string{"أحمد", "مدرسة"}, tok.Tokenize("أحمد,مدرسة"))
	assert.Same(t, n, tok.Normalizer())
}

func TestSplitDoesNotNormalize(t *testing.T) {
	tok := newTokenizer(t)
	assert.Equal(t, []string{"أحمد"}, tok.Split("أحمد"))
}
