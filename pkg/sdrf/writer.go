package sdrf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Write writes t as tab-separated SDRF. Headers are written as stored,
// repeats included, so a table read by Read round-trips.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(t.headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes t to path, replacing any existing file.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return f.Close()
}
