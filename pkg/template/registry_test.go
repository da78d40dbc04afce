package template

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) error = nil, want error")
	}
	var regErr *RegistryError
	if err := r.Register(&Template{}); !errors.As(err, &regErr) {
		t.Errorf("Register(empty name) error = %v, want *RegistryError", err)
	}

	before := r.Version()
	if err := r.Register(&Template{Name: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&Template{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if r.Version() == before {
		t.Error("Version() did not change after Register")
	}

	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want [a b]", got)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := r.Get("zzz"); ok {
		t.Error("Get(zzz) found, want missing")
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Template{Name: "old"})
	loaded := r.LoadTime()

	time.Sleep(time.Millisecond)
	if err := r.Replace([]*Template{{Name: "new"}}); err != nil {
		t.Fatal(err)
	}
	if !r.LoadTime().After(loaded) {
		t.Errorf("LoadTime() = %v, want after %v", r.LoadTime(), loaded)
	}
	if _, ok := r.Get("old"); ok {
		t.Error("Replace() kept old template")
	}
	if _, ok := r.Get("new"); !ok {
		t.Error("Replace() lost new template")
	}
	if err := r.Replace([]*Template{nil}); err == nil {
		t.Error("Replace(nil) error = nil, want error")
	}
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("custom.yaml", "name: custom\nextends: default\ncolumns:\n  - name: comment[extra]\n    requirement: optional\n")
	write("other.yml", "name: other\n")
	write("notes.txt", "not a template")
	write(".hidden.yaml", "name: [broken")

	r, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	custom, ok := r.Get("custom")
	if !ok {
		t.Fatal("custom template not registered")
	}
	if custom.Source != filepath.Join(dir, "custom.yaml") {
		t.Errorf("Source = %q", custom.Source)
	}
	if _, ok := r.Get("other"); !ok {
		t.Error("other template not registered")
	}

	resolved, err := NewResolver(r).Resolve("custom")
	if err != nil {
		t.Fatalf("Resolve(custom) error = %v", err)
	}
	if resolved.Chain[0] != "minimum" {
		t.Errorf("Chain = %v, want to start at minimum", resolved.Chain)
	}
}

func TestRegistry_LoadDirErrors(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: dup\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: dup\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("name: c\ncolumns:\n  - name: x\n    requirement: maybe\n"), 0o644)

	err := NewRegistry().LoadDir(dir)
	if err == nil {
		t.Fatal("LoadDir() error = nil, want error")
	}
	for _, want := range []string{`template "dup" defined in both`, `invalid requirement "maybe"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("LoadDir() error = %q, want to contain %q", err, want)
		}
	}

	if err := NewRegistry().LoadDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("LoadDir(missing) error = nil, want error")
	}
}

func TestBuiltinTemplates(t *testing.T) {
	r, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry() error = %v", err)
	}

	want := []string{"cell_lines", "default", "human", "minimum", "nonvertebrates", "plants", "vertebrates"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	resolver := NewResolver(r)
	for _, name := range want {
		resolved, err := resolver.Resolve(name)
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", name, err)
			continue
		}
		if resolved.Chain[0] != "minimum" {
			t.Errorf("%s chain = %v, want root minimum", name, resolved.Chain)
		}
	}

	minimum, _ := r.Get("minimum")
	if got := minimum.Validators[0]; got.Name != "min_columns" || got.Params["min_columns"] != 12 {
		t.Errorf("minimum first validator = %+v, want min_columns 12", got)
	}
}
