package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lepinkainen/coverspectrum/internal/config"
)

// IndexCmd prints the index and optionally writes it back normalized.
type IndexCmd struct {
	Index string `short:"i" help:"Index file to read (overrides index.file)" type:"path"`
	Write string `short:"w" help:"Write the index as normalized JSON to this path" type:"path"`
}

func (c *IndexCmd) Run(cfg *config.Config) error {
	idx, err := loadIndex(cfg, c.Index)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(idx.Volumes))
	for _, vol := range idx.Volumes {
		first, last := "", ""
		if n := len(vol.Issues); n > 0 {
			first, last = vol.Issues[0], vol.Issues[n-1]
		}
		rows = append(rows, []string{vol.ID, strconv.Itoa(len(vol.Issues)), first, last})
	}
	rows = append(rows, []string{"total", strconv.Itoa(idx.Len()), "", ""})

	_, _ = fmt.Fprintln(stdout, renderTable(
		[]string{"Volume", "Issues", "First", "Last"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))

	if c.Write == "" {
		return nil
	}
	if err := idx.Save(c.Write); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	slog.Info("Wrote normalized index", "path", c.Write, "identifiers", idx.Len())
	return nil
}
