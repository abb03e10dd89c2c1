package issues

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
    "636": ["8041", "8042", "8043"],
    "635": ["8037", "8038"],
    "631": ["8020", "8021", "8022", "8019"]
}`

func TestParseJSON_PreservesOrder(t *testing.T) {
	idx, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	require.Len(t, idx.Volumes, 3)
	assert.Equal(t, "636", idx.Volumes[0].ID)
	assert.Equal(t, "635", idx.Volumes[1].ID)
	assert.Equal(t, "631", idx.Volumes[2].ID)
	assert.Equal(t, []string{"8020", "8021", "8022", "8019"}, idx.Volumes[2].Issues)

	pairs := idx.Pairs()
	require.Len(t, pairs, 9)
	assert.Equal(t, Identifier{Volume: "636", Issue: "8041"}, pairs[0])
	assert.Equal(t, Identifier{Volume: "631", Issue: "8019"}, pairs[8])
	assert.Equal(t, "636/8041", pairs[0].String())
}

func TestParseJSON_NumericIssues(t *testing.T) {
	idx, err := ParseJSON([]byte(`{"409": [6950, "6951"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"6950", "6951"}, idx.Volumes[0].Issues)
}

func TestParseJSON_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "not an object", input: `["636"]`},
		{name: "issues not a list", input: `{"636": "8041"}`},
		{name: "nested object issue", input: `{"636": [{"a": 1}]}`},
		{name: "truncated", input: `{"636": ["8041"]`},
		{name: "empty input", input: ``},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestPairs_DropsDuplicates(t *testing.T) {
	idx := &Index{}
	idx.Add("1", "a", "b", "a")
	idx.Add("2", "a")
	idx.Add("1", "c")

	assert.Equal(t, []Identifier{
		{Volume: "1", Issue: "a"},
		{Volume: "1", Issue: "b"},
		{Volume: "1", Issue: "c"},
		{Volume: "2", Issue: "a"},
	}, idx.Pairs())
	assert.Equal(t, 4, idx.Len())
}

func TestParseYAML(t *testing.T) {
	input := `
"636":
  - "8041"
  - "8042"
"409": [6950]
`
	idx, err := ParseYAML([]byte(input))
	require.NoError(t, err)

	require.Len(t, idx.Volumes, 2)
	assert.Equal(t, "636", idx.Volumes[0].ID)
	assert.Equal(t, []string{"8041", "8042"}, idx.Volumes[0].Issues)
	assert.Equal(t, "409", idx.Volumes[1].ID)
	assert.Equal(t, []string{"6950"}, idx.Volumes[1].Issues)
}

func TestParseYAML_RejectsNonMapping(t *testing.T) {
	_, err := ParseYAML([]byte("- 636\n- 635\n"))
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTripKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache", "volumes_issues.json")

	idx, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "    \"636\": [\n        \"8041\",")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Pairs(), loaded.Pairs())
}

func TestLoad_YAMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.yml")
	require.NoError(t, os.WriteFile(path, []byte("\"1\": [\"2\"]\n"), 0644))

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Identifier{{Volume: "1", Issue: "2"}}, idx.Pairs())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read index file")
}
