package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCommand(t *testing.T) {
	out, err := run(t, "أحمد\n\nإسلام\n", "normalize")
	require.NoError(t, err)
	assert.Equal(t, "احمد\n\nاسلام\n", out)
}

func TestNormalizeCommandTokens(t *testing.T) {
	out, err := run(t, "في ممتاز\n", "normalize", "--tokens")
	require.NoError(t, err)
	assert.Equal(t, "ممتاز\n", out)
}

func TestNormalizeCommandCustomStopWords(t *testing.T) {
	stop := writeFile(t, t.TempDir(), "stop.txt", "ممتاز")

	out, err := run(t, "في ممتاز\n", "normalize", "--tokens", "--stop-words", stop)
	require.NoError(t, err)
	assert.Equal(t, "في\n", out)
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	_, err := run(t, "", "normalize", "--log-level", "loud")
	assert.Error(t, err)
}
