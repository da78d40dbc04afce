package validation

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"

	"sdrf-pipelines/sdrfcheck/pkg/report"
)

// Params gives typed access to a validator's YAML parameters.
type Params map[string]any

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Keys returns the parameter names, sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns an integer parameter, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, &paramError{param: key, message: fmt.Sprintf("must be an integer, got %v", n)}
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, &paramError{param: key, message: fmt.Sprintf("must be an integer, got %q", n), cause: err}
		}
		return i, nil
	}
	return 0, &paramError{param: key, message: fmt.Sprintf("must be an integer, got %T", v)}
}

// RequiredInt returns an integer parameter that must be present.
func (p Params) RequiredInt(key string) (int, error) {
	if !p.Has(key) {
		return 0, &paramError{param: key, message: "is required"}
	}
	return p.Int(key, 0)
}

// Bool returns a boolean parameter, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, &paramError{param: key, message: fmt.Sprintf("must be a boolean, got %q", b), cause: err}
		}
		return parsed, nil
	}
	return false, &paramError{param: key, message: fmt.Sprintf("must be a boolean, got %T", v)}
}

// String returns a string parameter, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &paramError{param: key, message: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, nil
}

// RequiredString returns a non-empty string parameter.
func (p Params) RequiredString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &paramError{param: key, message: "is required"}
	}
	return s, nil
}

// Strings returns a list parameter. A single string is accepted as a
// one-element list.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []string:
		return slices.Clone(list), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &paramError{param: key, message: fmt.Sprintf("item %d must be a string, got %T", i, item)}
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &paramError{param: key, message: fmt.Sprintf("must be a list of strings, got %T", v)}
}

// Severity returns a severity parameter ("error" or "warning").
func (p Params) Severity(key string, def report.Severity) (report.Severity, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	sev, err := report.ParseSeverity(s)
	if err != nil {
		return "", &paramError{param: key, message: err.Error()}
	}
	return sev, nil
}
