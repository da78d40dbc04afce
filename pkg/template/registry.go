package template

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Source looks up templates by name. Implementations must be safe for
// repeated, concurrent calls.
type Source interface {
	Get(name string) (*Template, bool)
}

// Registry is a thread-safe in-memory store of loaded templates.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	version   string
	loadTime  time.Time
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	r := &Registry{
		templates: make(map[string]*Template),
		loadTime:  time.Now(),
	}
	r.updateVersion()
	return r
}

// Register adds a template, replacing any template with the same name.
func (r *Registry) Register(t *Template) error {
	if t == nil {
		return &RegistryError{Operation: "register", Message: "template cannot be nil"}
	}
	if t.Name == "" {
		return &RegistryError{Operation: "register", Message: "template name cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates[t.Name] = t
	r.updateVersion()
	return nil
}

// Get retrieves a template by name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[name]
	return t, ok
}

// Names returns the registered template names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.templates)
}

// Replace atomically swaps the whole template set.
func (r *Registry) Replace(templates []*Template) error {
	next := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if t == nil || t.Name == "" {
			return &RegistryError{Operation: "replace", Message: "template and template name cannot be empty"}
		}
		next[t.Name] = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates = next
	r.loadTime = time.Now()
	r.updateVersion()
	return nil
}

// Version returns a short hash that changes whenever the template set does.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// LoadTime returns when the template set was last replaced.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loadTime
}

// LoadDir parses every *.yaml / *.yml file in dir (non-recursive) and
// registers the templates. All parse failures are reported together.
func (r *Registry) LoadDir(dir string) error {
	templates, err := parseDir(os.DirFS(dir), ".", func(name string) string {
		return filepath.Join(dir, name)
	})
	if err != nil {
		return err
	}
	for _, t := range templates {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// LoadFS parses every template file in dir of fsys and registers them.
func (r *Registry) LoadFS(fsys fs.FS, dir string) error {
	templates, err := parseDir(fsys, dir, func(name string) string { return path.Join(dir, name) })
	if err != nil {
		return err
	}
	for _, t := range templates {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func parseDir(fsys fs.FS, dir string, display func(string) string) ([]*Template, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &RegistryError{Operation: "load", Message: fmt.Sprintf("failed to list %q", dir), Cause: err}
	}

	var (
		templates []*Template
		failures  []string
		byName    = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !isTemplateFile(entry.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		t, err := Parse(data, display(entry.Name()))
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if prev, dup := byName[t.Name]; dup {
			failures = append(failures, fmt.Sprintf("template %q defined in both %q and %q", t.Name, prev, t.Source))
			continue
		}
		byName[t.Name] = t.Source
		templates = append(templates, t)
	}

	if len(failures) > 0 {
		return nil, &RegistryError{Operation: "load", Message: strings.Join(failures, "; ")}
	}
	return templates, nil
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// updateVersion must be called with the write lock held.
func (r *Registry) updateVersion() {
	h := sha256.New()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := r.templates[name]
		h.Write([]byte(t.Name))
		h.Write([]byte(t.Extends))
		h.Write([]byte(t.Source))
		fmt.Fprintf(h, "%d/%d", len(t.Columns), len(t.Validators))
	}

	r.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}
