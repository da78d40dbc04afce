package template

import (
	"os"
	"path/filepath"
)

// LoadSet parses the builtin templates and, when dir is non-empty, every
// template file in dir. A user template replaces the builtin of the same
// name. Nothing is registered; pass the result to Registry.Replace.
func LoadSet(dir string) ([]*Template, error) {
	builtins, err := parseDir(builtinFS, BuiltinDir, func(name string) string { return BuiltinDir + "/" + name })
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return builtins, nil
	}

	user, err := parseDir(os.DirFS(dir), ".", func(name string) string { return filepath.Join(dir, name) })
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(builtins))
	set := append([]*Template(nil), builtins...)
	for i, t := range set {
		byName[t.Name] = i
	}
	for _, t := range user {
		if i, ok := byName[t.Name]; ok {
			set[i] = t
			continue
		}
		set = append(set, t)
	}
	return set, nil
}

// Reload rebuilds the registry from the builtin templates and dir. On
// error the current template set is left untouched.
func (r *Registry) Reload(dir string) error {
	set, err := LoadSet(dir)
	if err != nil {
		return err
	}
	return r.Replace(set)
}
