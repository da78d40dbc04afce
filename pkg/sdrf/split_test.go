package sdrf

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const splitInput = "source name\tCharacteristics[organism]\tcomment[label]\tcomment[modification parameters]\tcomment[modification parameters]\n" +
	"s1\thomo sapiens\tTMT126\tNT=Oxidation\tNT=Carbamidomethyl\n" +
	"s2\tmus musculus\tTMT127\tNT=Oxidation\t\n" +
	"s3\thomo sapiens\tTMT127\tNT=Acetyl\tNT=Carbamidomethyl\n" +
	"s4\t\tTMT126\tNT=Oxidation\tNT=Oxidation\n" +
	"s5\thomo sapiens\tTMT126\tNT=Oxidation\tNT=Oxidation\n"

func readSplitInput(t *testing.T) *Table {
	t.Helper()
	table, err := Read(strings.NewReader(splitInput), ReadOptions{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return table
}

func sourceNames(t *Table) []string {
	var out []string
	for i := 0; i < t.NumRows(); i++ {
		out = append(out, t.Cell(i, 0))
	}
	return out
}

func TestSplit(t *testing.T) {
	table := readSplitInput(t)

	tests := []struct {
		name       string
		attributes []string
		keys       [][]string
		rows       [][]string
		skipped    int
	}{
		{
			name:       "one attribute",
			attributes: []string{"characteristics[organism]"},
			keys:       [][]string{{"homo sapiens"}, {"mus musculus"}},
			rows:       [][]string{{"s1", "s3", "s5"}, {"s2"}},
			skipped:    1,
		},
		{
			name:       "two attributes",
			attributes: []string{"characteristics[organism]", "comment[label]"},
			keys:       [][]string{{"homo sapiens", "TMT126"}, {"homo sapiens", "TMT127"}, {"mus musculus", "TMT127"}},
			rows:       [][]string{{"s1", "s5"}, {"s3"}, {"s2"}},
			skipped:    1,
		},
		{
			name:       "repeated header keys by first occurrence",
			attributes: []string{"comment[modification parameters]"},
			keys:       [][]string{{"NT=Acetyl"}, {"NT=Oxidation"}},
			rows:       [][]string{{"s3"}, {"s1", "s2", "s4", "s5"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, skipped, err := Split(table, tt.attributes)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if skipped != tt.skipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.skipped)
			}
			if len(groups) != len(tt.keys) {
				t.Fatalf("got %d groups, want %d", len(groups), len(tt.keys))
			}
			for i, g := range groups {
				if !reflect.DeepEqual(g.Key, tt.keys[i]) {
					t.Errorf("group %d key = %q, want %q", i, g.Key, tt.keys[i])
				}
				if got := sourceNames(g.Table); !reflect.DeepEqual(got, tt.rows[i]) {
					t.Errorf("group %d rows = %q, want %q", i, got, tt.rows[i])
				}
				if !reflect.DeepEqual(g.Table.Headers(), table.Headers()) {
					t.Errorf("group %d headers = %q", i, g.Table.Headers())
				}
			}
		})
	}
}

func TestSplit_Errors(t *testing.T) {
	table := readSplitInput(t)

	if _, _, err := Split(table, []string{"characteristics[disease]"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Split(unknown) error = %v, want ErrUnknownColumn", err)
	}
	if _, _, err := Split(table, nil); err == nil {
		t.Error("Split(no attributes) expected error")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	table := readSplitInput(t)
	groups, _, err := Split(table, []string{"comment[label]"})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, groups[0].Table); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	header, _, _ := strings.Cut(buf.String(), "\n")
	if want := strings.SplitN(splitInput, "\n", 2)[0]; header != want {
		t.Errorf("header = %q, want %q (repeated headers kept verbatim)", header, want)
	}

	back, err := Read(&buf, ReadOptions{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(back.rows, groups[0].Table.rows) {
		t.Errorf("rows after round trip = %q, want %q", back.rows, groups[0].Table.rows)
	}
}

func TestWriteFile(t *testing.T) {
	table := readSplitInput(t)
	path := filepath.Join(t.TempDir(), "out.sdrf.tsv")
	if err := WriteFile(path, table); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if back.NumRows() != table.NumRows() {
		t.Errorf("rows = %d, want %d", back.NumRows(), table.NumRows())
	}
}

func TestSplitNames(t *testing.T) {
	prefixes := map[string]string{
		"data/PXD000001.sdrf.tsv": "PXD000001",
		"PXD.v2.sdrf.tsv":         "PXD.v2",
		"study.tsv":               "study",
		"study":                   "study",
	}
	for path, want := range prefixes {
		if got := SplitPrefix(path); got != want {
			t.Errorf("SplitPrefix(%q) = %q, want %q", path, got, want)
		}
	}

	if got := SplitFileName("PXD1", []string{"homo sapiens", "TMT126"}); got != "PXD1-homo_sapiens-TMT126.sdrf.tsv" {
		t.Errorf("SplitFileName() = %q", got)
	}
	if got := SplitFileName("PXD1", []string{"a/b"}); got != "PXD1-a_b.sdrf.tsv" {
		t.Errorf("SplitFileName(separator) = %q", got)
	}
}
