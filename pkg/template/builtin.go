package template

import (
	"embed"
	"io/fs"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinDir is the directory of the embedded templates inside BuiltinFS.
const BuiltinDir = "builtin"

// BuiltinFS exposes the embedded template files.
func BuiltinFS() fs.FS {
	return builtinFS
}

// LoadBuiltin registers the embedded templates (minimum, default, human,
// vertebrates, nonvertebrates, plants, cell_lines).
func (r *Registry) LoadBuiltin() error {
	return r.LoadFS(builtinFS, BuiltinDir)
}

// NewBuiltinRegistry returns a registry holding only the embedded templates.
func NewBuiltinRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadBuiltin(); err != nil {
		return nil, err
	}
	return r, nil
}
