package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeComponent(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "numeric identifier", input: "8041", expected: "8041"},
		{name: "identifier with slash", input: "S1/2", expected: "S1~s2"},
		{name: "identifier with backslash", input: "S1\\2", expected: "S1~b2"},
		{name: "identifier with colon", input: "vol:1", expected: "vol~c1"},
		{name: "underscore", input: "1_2", expected: "1~u2"},
		{name: "tilde", input: "a~u", expected: "a~~u"},
		{name: "path traversal", input: "../etc", expected: "..~setc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EscapeComponent(tc.input))
		})
	}
}

func TestEscapeComponent_JoinedPairsDoNotCollide(t *testing.T) {
	pairs := [][2]string{
		{"1_2", "3"}, {"1", "2_3"},
		{"a/b", "c"}, {"a-b", "c"},
		{"a~u", "b"}, {"a_", "b"}, {"a", "~ub"},
		{"", "1"}, {"1", ""},
	}
	seen := make(map[string][2]string)
	for _, p := range pairs {
		name := EscapeComponent(p[0]) + "_" + EscapeComponent(p[1])
		assert.NotContains(t, name, "/")
		if prev, ok := seen[name]; ok {
			t.Fatalf("%q and %q both map to %q", prev, p, name)
		}
		seen[name] = p
	}
}

func TestFileExists(t *testing.T) {
	tempDir := t.TempDir()

	existingFile := filepath.Join(tempDir, "existing.txt")
	require.NoError(t, os.WriteFile(existingFile, []byte("test"), 0644))

	assert.True(t, FileExists(existingFile))
	assert.False(t, FileExists(filepath.Join(tempDir, "missing.txt")))
	assert.False(t, FileExists(tempDir), "directories are not files")
}

func TestWriteAtomic(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "nested", "cover.jpg")

	n, err := WriteAtomic(target, strings.NewReader("image bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("image bytes")), n)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(content))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteAtomic_ReaderFailureLeavesNoFile(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "cover.jpg")

	_, err := WriteAtomic(target, failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.False(t, FileExists(target))
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomic_ConcurrentWritersProduceWholeFile(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "cover.jpg")
	payload := strings.Repeat("x", 64*1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := WriteAtomic(target, strings.NewReader(payload))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
}

func TestWriteJSONFile(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "out", "records.json")

	require.NoError(t, WriteJSONFile(map[string]int{"a": 1}, target))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(content))

	require.NoError(t, WriteJSONFile(map[string]int{"a": 2}, target))
	content, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(content), "\"a\": 2")
}
