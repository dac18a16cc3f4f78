package wordlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFiltersPassphraseBounds(t *testing.T) {
	// Bounds are 8 and 63 bytes; whitespace is trimmed before the check.
	input := strings.Join([]string{
		"short",
		"exactly8",
		"  trimmed-candidate  ",
		"",
		strings.Repeat("a", 63),
		strings.Repeat("b", 64),
		"normalpassword123",
	}, "\n")

	words, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"exactly8",
		"trimmed-candidate",
		strings.Repeat("a", 63),
		"normalpassword123",
	}, words)
}

func TestReadEmptyInput(t *testing.T) {
	words, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordlist.txt")
	require.NoError(t, os.WriteFile(path, []byte("password123\ntiny\nletmein2024\n"), 0o644))

	words, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"password123", "letmein2024"}, words)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Error(t, err)
}
