package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchInputs(t *testing.T) (lexicon, sentences, results string) {
	t.Helper()
	dir := t.TempDir()
	lexicon = writeFile(t, dir, "lexicon.csv",
		"Term,Polarity",
		"ممتاز,Pos",
		"سيء,Neg",
	)
	sentences = writeFile(t, dir, "sentences.csv",
		"Sentence,Polarity",
		"الخدمة ممتاز,Pos",
		"الطعام سيء,Neg",
		"كلام كلام,Neg",
	)
	results = filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(results, 0o755))
	return lexicon, sentences, results
}

func TestBatchCommand(t *testing.T) {
	lex, sentences, dir := batchInputs(t)

	out, err := run(t, "", "batch", "-l", lex, "-s", sentences, "-r", dir, "--unlisted")
	require.NoError(t, err)

	resultFiles, err := filepath.Glob(filepath.Join(dir, "result-*.csv"))
	require.NoError(t, err)
	require.Len(t, resultFiles, 1)
	assert.Contains(t, out, resultFiles[0])

	data, err := os.ReadFile(resultFiles[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\ufeff"), "result file should start with a BOM")
	assert.Contains(t, content, "Sentence,System Polarity,Human Polarity")
	assert.Contains(t, content, "الخدمة ممتاز,Pos,Pos")
	assert.Contains(t, content, "الطعام سيء,Neg,Neg")
	assert.Contains(t, content, "كلام كلام,Neut,Neg")

	assert.Contains(t, out, "compared: 3")

	unlistedFiles, err := filepath.Glob(filepath.Join(dir, "unlisted-*.txt"))
	require.NoError(t, err)
	require.Len(t, unlistedFiles, 1)
	data, err = os.ReadFile(unlistedFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "كلام\t2")
}

func TestBatchCommandWithoutHumanLabels(t *testing.T) {
	lex, _, dir := batchInputs(t)
	sentences := writeFile(t, t.TempDir(), "plain.csv",
		"Review",
		"الخدمة ممتاز",
	)

	out, err := run(t, "", "batch", "--lexicon", lex, "--sentences", sentences, "--result-dir", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "compared:")

	files, err := filepath.Glob(filepath.Join(dir, "unlisted-*.txt"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBatchCommandRejectsBadPaths(t *testing.T) {
	lex, sentences, dir := batchInputs(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "result dir is a file",
			args: []string{"-l", lex, "-s", sentences, "-r", sentences},
			want: "is not a directory",
		},
		{
			name: "sentences is a directory",
			args: []string{"-l", lex, "-s", dir, "-r", dir},
			want: "is not a regular file",
		},
		{
			name: "missing lexicon",
			args: []string{"-l", filepath.Join(dir, "nope.csv"), "-s", sentences, "-r", dir},
			want: "failed to open",
		},
		{
			name: "missing required flag",
			args: []string{"-l", lex, "-s", sentences},
			want: "result-dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", append([]string{"batch"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBatchCommandNoSentenceColumn(t *testing.T) {
	lex, _, dir := batchInputs(t)
	sentences := writeFile(t, t.TempDir(), "bad.csv", "Text", "ممتاز")

	_, err := run(t, "", "batch", "-l", lex, "-s", sentences, "-r", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentence column")
}
