package workitems

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "plain", input: "A\nB\nC\n", want: []string{"A", "B", "C"}},
		{name: "no trailing newline", input: "A\nB", want: []string{"A", "B"}},
		{name: "trimmed", input: "  9780262033848  \n\t0131103628\r\n", want: []string{"9780262033848", "0131103628"}},
		{name: "blank lines skipped", input: "A\n\n   \nB\n", want: []string{"A", "B"}},
		{name: "comments skipped", input: "# isbns\nA\n  # inline\nB\n", want: []string{"A", "B"}},
		{name: "empty", input: "", want: []string{}},
		{name: "order kept with duplicates", input: "B\nA\nB\n", want: []string{"B", "A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_LineTooLong(t *testing.T) {
	_, err := Read(strings.NewReader(strings.Repeat("x", 70*1024)))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isbns.txt")
	require.NoError(t, os.WriteFile(path, []byte("111\n222\n"), 0o600))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, got)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open work items")
}
