package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"sdrf-pipelines/sdrfcheck/pkg/ontology"
	"sdrf-pipelines/sdrfcheck/pkg/template"
)

// Env carries the dependencies factories may need.
type Env struct {
	// Ontology resolves terms for the ontology validator. When nil,
	// ontology checks compile to no-ops.
	Ontology ontology.Resolver

	Logger *slog.Logger
}

// Factory compiles validator parameters into a Validator. The returned
// value must implement TableValidator, CellValidator, or both, matching
// the declared scopes.
type Factory func(params Params, env *Env) (Validator, error)

// Definition describes a registered validator.
type Definition struct {
	Name        string
	Description string
	Scopes      Scope

	// Params lists accepted parameter names; others are rejected.
	Params []string

	New Factory
}

// Registry maps validator names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
	env  *Env
}

// Option configures a Registry.
type Option func(*Registry)

// WithOntologyResolver sets the resolver used by the ontology validator.
func WithOntologyResolver(r ontology.Resolver) Option {
	return func(reg *Registry) {
		reg.env.Ontology = r
	}
}

// WithLogger sets the logger handed to factories.
func WithLogger(logger *slog.Logger) Option {
	return func(reg *Registry) {
		reg.env.Logger = logger
	}
}

// NewRegistry creates a registry holding no validators.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		defs: make(map[string]Definition),
		env:  &Env{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env.Logger == nil {
		r.env.Logger = slog.Default()
	}
	r.env.Logger = r.env.Logger.With("component", "validation")
	return r
}

// NewDefaultRegistry creates a registry with every built-in validator.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, def := range Builtins() {
		// builtins are well-formed
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a validator definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("validator name cannot be empty")
	}
	if def.New == nil {
		return fmt.Errorf("validator %q has no factory", def.Name)
	}
	if def.Scopes == 0 {
		return fmt.Errorf("validator %q declares no scope", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("validator %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Has implements template.ValidatorCatalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names implements template.ValidatorCatalog.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		def, _ := r.Lookup(name)
		out = append(out, def)
	}
	return out
}

// Compile instantiates every validator a resolved template references.
func (r *Registry) Compile(resolved *template.Resolved) (*Plan, error) {
	if resolved == nil {
		return nil, fmt.Errorf("resolved template cannot be nil")
	}

	plan := &Plan{
		Template: resolved,
		Columns:  make([]ColumnPlan, len(resolved.Columns)),
	}

	for _, spec := range resolved.Validators {
		v, err := r.build(spec, resolved.Name, "", ScopeTable)
		if err != nil {
			return nil, err
		}
		plan.Table = append(plan.Table, v.(TableValidator))
	}

	for i := range resolved.Columns {
		col := &resolved.Columns[i]
		plan.Columns[i].Spec = col
		for _, spec := range col.Validators {
			v, err := r.build(spec, resolved.Name, col.Name, ScopeCell)
			if err != nil {
				return nil, err
			}
			plan.Columns[i].Validators = append(plan.Columns[i].Validators, v.(CellValidator))
		}
	}

	return plan, nil
}

func (r *Registry) build(spec template.ValidatorSpec, tmpl, column string, scope Scope) (Validator, error) {
	def, ok := r.Lookup(spec.Name)
	if !ok {
		return nil, &template.UnknownValidatorError{
			Validator:  spec.Name,
			Template:   tmpl,
			Column:     column,
			Suggestion: template.SuggestName(spec.Name, r.Names()),
		}
	}

	invalid := func(param, msg string, cause error) error {
		return &InvalidParamsError{
			Validator: spec.Name,
			Template:  tmpl,
			Column:    column,
			Param:     param,
			Message:   msg,
			Cause:     cause,
		}
	}

	if !def.Scopes.Has(scope) {
		where := "at table level"
		if scope == ScopeCell {
			where = "on a column"
		}
		return nil, invalid("", fmt.Sprintf("cannot be used %s (supports %s)", where, def.Scopes), nil)
	}

	params := Params(spec.Params)
	allowed := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		allowed[p] = true
	}
	for _, key := range params.Keys() {
		if !allowed[key] {
			return nil, invalid(key, "unknown parameter", nil)
		}
	}

	v, err := def.New(params, r.env)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			return nil, invalid(pe.param, pe.message, pe.cause)
		}
		return nil, invalid("", "cannot compile", err)
	}

	switch scope {
	case ScopeTable:
		if _, ok := v.(TableValidator); !ok {
			return nil, invalid("", "does not implement table validation", nil)
		}
	case ScopeCell:
		if _, ok := v.(CellValidator); !ok {
			return nil, invalid("", "does not implement cell validation", nil)
		}
	}
	return v, nil
}
