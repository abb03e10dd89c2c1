// Package issues models the volume → issue mapping the pipeline consumes.
//
// Iteration order matters: it is the tie-break order for covers with equal
// wavelengths, so the index keeps volumes and issues in file order instead of
// going through a Go map.
package issues

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"gopkg.in/yaml.v3"
)

// Identifier names one issue of one volume. Both parts are opaque strings.
type Identifier struct {
	Volume string `json:"volume"`
	Issue  string `json:"issue"`
}

func (id Identifier) String() string {
	return id.Volume + "/" + id.Issue
}

// Volume is one entry of the index: a volume and its issues in listing order.
type Volume struct {
	ID     string
	Issues []string
}

// Index is an ordered volume → issues mapping.
type Index struct {
	Volumes []Volume
}

// Pairs flattens the index in mapping-then-list order. Duplicate pairs are
// dropped after their first occurrence.
func (x *Index) Pairs() []Identifier {
	var pairs []Identifier
	seen := make(map[Identifier]bool)
	for _, v := range x.Volumes {
		for _, issue := range v.Issues {
			id := Identifier{Volume: v.ID, Issue: issue}
			if seen[id] {
				continue
			}
			seen[id] = true
			pairs = append(pairs, id)
		}
	}
	return pairs
}

// Len returns the number of distinct identifiers in the index.
func (x *Index) Len() int {
	return len(x.Pairs())
}

// Add appends issues to a volume, creating the volume at the end of the
// index when it is not present yet.
func (x *Index) Add(volume string, issues ...string) {
	for i := range x.Volumes {
		if x.Volumes[i].ID == volume {
			x.Volumes[i].Issues = append(x.Volumes[i].Issues, issues...)
			return
		}
	}
	x.Volumes = append(x.Volumes, Volume{ID: volume, Issues: append([]string(nil), issues...)})
}

// Load reads an index file. Files ending in .yaml or .yml are parsed as YAML,
// everything else as a JSON object.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON object of volume → [issue, ...] keeping key order.
func ParseJSON(data []byte) (*Index, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	idx := &Index{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read volume key: %w", err)
		}
		volume, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected volume key, got %v", tok)
		}

		var raw []json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("volume %s: expected a list of issues: %w", volume, err)
		}

		issues := make([]string, 0, len(raw))
		for _, r := range raw {
			issue, err := scalarString(r)
			if err != nil {
				return nil, fmt.Errorf("volume %s: %w", volume, err)
			}
			issues = append(issues, issue)
		}
		idx.Add(volume, issues...)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return idx, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to parse index: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("failed to parse index: expected %q, got %v", want, tok)
	}
	return nil
}

// scalarString accepts issue identifiers written as JSON strings or numbers.
func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("issue identifier must be a string or number, got %s", string(raw))
}

// ParseYAML decodes a YAML mapping of volume → [issue, ...] keeping key order.
func ParseYAML(data []byte) (*Index, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}

	idx := &Index{}
	if len(doc.Content) == 0 {
		return idx, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse index: expected a mapping at line %d", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("volume %s: expected a list of issues at line %d", key.Value, value.Line)
		}
		issues := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("volume %s: issue at line %d is not a scalar", key.Value, item.Line)
			}
			issues = append(issues, item.Value)
		}
		idx.Add(key.Value, issues...)
	}
	return idx, nil
}

// MarshalJSON writes the index as a JSON object in index order.
func (x *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range x.Volumes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.ID)
		if err != nil {
			return nil, err
		}
		issues := v.Issues
		if issues == nil {
			issues = []string{}
		}
		list, err := json.Marshal(issues)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(list)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Save writes the index as 4-space indented JSON, the layout the discovery
// step has always produced.
func (x *Index) Save(path string) error {
	compact, err := x.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return fmt.Errorf("failed to indent index: %w", err)
	}
	out.WriteByte('\n')
	return fileutil.WriteFileAtomic(path, out.Bytes())
}
