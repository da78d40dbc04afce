package template

import (
	"maps"
	"slices"
	"sync"
)

// ValidatorCatalog reports which validator names are registered.
type ValidatorCatalog interface {
	Has(name string) bool
	Names() []string
}

// Resolver folds a template's extends chain into a Resolved template.
// Results are memoised by template name until Invalidate is called.
type Resolver struct {
	source  Source
	catalog ValidatorCatalog

	mu    sync.Mutex
	cache map[string]*Resolved
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithValidatorCatalog makes Resolve fail with an *UnknownValidatorError
// when a template references a validator missing from the catalog.
func WithValidatorCatalog(catalog ValidatorCatalog) ResolverOption {
	return func(r *Resolver) {
		r.catalog = catalog
	}
}

// NewResolver creates a resolver reading templates from source.
func NewResolver(source Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		cache:  make(map[string]*Resolved),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the flattened template for name. It fails with
// *SchemaCycleError, *UnknownTemplateError or *UnknownValidatorError.
func (r *Resolver) Resolve(name string) (*Resolved, error) {
	r.mu.Lock()
	if cached, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	chain, err := r.ancestors(name)
	if err != nil {
		return nil, err
	}

	resolved := fold(chain)

	if r.catalog != nil {
		if err := r.checkValidators(resolved); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	r.cache[name] = resolved
	return resolved, nil
}

// Invalidate drops every memoised result. Call it after the underlying
// templates change.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = make(map[string]*Resolved)
}

// ancestors walks extends from name upward and returns the chain root first.
func (r *Resolver) ancestors(name string) ([]*Template, error) {
	var (
		chain        []*Template
		visited      []string
		referencedBy string
	)

	for current := name; current != ""; {
		if slices.Contains(visited, current) {
			return nil, &SchemaCycleError{Cycle: append(slices.Clone(visited), current)}
		}

		t, ok := r.source.Get(current)
		if !ok {
			return nil, &UnknownTemplateError{
				Name:         current,
				ReferencedBy: referencedBy,
				Suggestion:   r.suggestTemplate(current),
			}
		}

		visited = append(visited, current)
		chain = append(chain, t)
		referencedBy = current
		current = t.Extends
	}

	slices.Reverse(chain)
	return chain, nil
}

func (r *Resolver) suggestTemplate(name string) string {
	lister, ok := r.source.(interface{ Names() []string })
	if !ok {
		return ""
	}
	return SuggestName(name, lister.Names())
}

func (r *Resolver) checkValidators(resolved *Resolved) error {
	check := func(spec ValidatorSpec, column string) error {
		if r.catalog.Has(spec.Name) {
			return nil
		}
		return &UnknownValidatorError{
			Validator:  spec.Name,
			Template:   resolved.Name,
			Column:     column,
			Suggestion: SuggestName(spec.Name, r.catalog.Names()),
		}
	}

	for _, v := range resolved.Validators {
		if err := check(v, ""); err != nil {
			return err
		}
	}
	for _, c := range resolved.Columns {
		for _, v := range c.Validators {
			if err := check(v, c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// fold merges a root-first chain. Same-named columns replace inherited ones
// in place; new columns are appended; table validators concatenate.
func fold(chain []*Template) *Resolved {
	leaf := chain[len(chain)-1]
	resolved := &Resolved{
		Name:        leaf.Name,
		Description: leaf.Description,
		index:       make(map[string]int),
	}

	for _, t := range chain {
		resolved.Chain = append(resolved.Chain, t.Name)

		for _, col := range t.Columns {
			col = cloneColumn(col)
			if i, ok := resolved.index[col.Name]; ok {
				resolved.Columns[i] = col
				continue
			}
			resolved.index[col.Name] = len(resolved.Columns)
			resolved.Columns = append(resolved.Columns, col)
		}

		for _, v := range t.Validators {
			resolved.Validators = append(resolved.Validators, cloneValidator(v))
		}
	}

	resolved.reindex()
	return resolved
}

func cloneColumn(c ColumnSpec) ColumnSpec {
	out := c
	out.Validators = nil
	for _, v := range c.Validators {
		out.Validators = append(out.Validators, cloneValidator(v))
	}
	return out
}

func cloneValidator(v ValidatorSpec) ValidatorSpec {
	return ValidatorSpec{Name: v.Name, Params: maps.Clone(v.Params)}
}
