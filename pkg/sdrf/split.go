package sdrf

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnknownColumn is returned when a split attribute names no column.
var ErrUnknownColumn = errors.New("unknown column")

// Group holds the rows of a table sharing one combination of attribute
// values.
type Group struct {
	// Key holds the attribute values, in attribute order.
	Key   []string
	Table *Table
}

// Split partitions the rows of t by the values of the given attribute
// columns. Attributes match headers case-insensitively; a repeated header
// is keyed by its first occurrence. Each group keeps every header of t and
// its rows in file order. Groups are sorted by key.
//
// Rows with an empty value in any attribute belong to no group; their
// number is returned as skipped.
func Split(t *Table, attributes []string) (groups []Group, skipped int, err error) {
	if len(attributes) == 0 {
		return nil, 0, errors.New("no split attributes given")
	}

	cols := make([]int, len(attributes))
	for i, attr := range attributes {
		col := t.column(attr)
		if col < 0 {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnknownColumn, attr)
		}
		cols[i] = col
	}

	index := make(map[string]int)
	var keys [][]string
	var rows [][][]string
	for _, row := range t.rows {
		key := make([]string, len(cols))
		empty := false
		for i, col := range cols {
			key[i] = row[col]
			empty = empty || row[col] == ""
		}
		if empty {
			skipped++
			continue
		}

		k := strings.Join(key, "\x00")
		g, ok := index[k]
		if !ok {
			g = len(keys)
			index[k] = g
			keys = append(keys, key)
			rows = append(rows, nil)
		}
		rows[g] = append(rows[g], row)
	}

	groups = make([]Group, len(keys))
	for i := range keys {
		sub, err := NewTable(t.headers, rows[i])
		if err != nil {
			return nil, 0, err
		}
		sub.Source = t.Source
		groups[i] = Group{Key: keys[i], Table: sub}
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return slices.Compare(a.Key, b.Key)
	})
	return groups, skipped, nil
}

// column returns the first position of the header matching name, or -1.
func (t *Table) column(name string) int {
	if pos, ok := t.index[name]; ok {
		return pos[0]
	}
	for i, h := range t.headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// SplitPrefix derives the default output prefix from an SDRF file name:
// "PXD000001.sdrf.tsv" gives "PXD000001", "study.tsv" gives "study".
func SplitPrefix(path string) string {
	parts := strings.Split(filepath.Base(path), ".")
	if len(parts) > 2 {
		return strings.Join(parts[:len(parts)-2], ".")
	}
	return parts[0]
}

// SplitFileName names the file for one group:
// <prefix>-<value>[-<value>...].sdrf.tsv with spaces and path separators
// replaced by underscores.
func SplitFileName(prefix string, key []string) string {
	name := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(strings.Join(key, "-"))
	return prefix + "-" + name + ".sdrf.tsv"
}
