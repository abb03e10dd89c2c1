package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
)

// Snapshot is the record file written by the analyze stage and read by the
// render stage.
type Snapshot struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Threshold   float64                `json:"threshold"`
	Records     []pipeline.CoverRecord `json:"records"`
}

// WriteSnapshot writes s as indented JSON.
func WriteSnapshot(path string, s *Snapshot) error {
	if s.Records == nil {
		s.Records = []pipeline.CoverRecord{}
	}
	return fileutil.WriteJSONFile(s, path)
}

// ReadSnapshot loads a snapshot. A .csv path is read as the sorted CSV
// instead, yielding a snapshot with records only.
func ReadSnapshot(path string) (*Snapshot, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		records, err := ReadCSV(path)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Records: records}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
	}
	return &s, nil
}
