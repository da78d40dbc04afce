package ontology

import (
	"context"
	"fmt"
	"strings"
)

// Resolver looks up a term in a named ontology.
//
// A term that is absent from the ontology is not an error: Lookup returns
// a Match with Found set to false. Errors are reserved for failures to
// consult the ontology at all and are reported as *ServiceError.
type Resolver interface {
	Lookup(ctx context.Context, ontology, term string) (Match, error)
}

// Match is the result of a term lookup.
type Match struct {
	Found    bool   `json:"found"`
	Ontology string `json:"ontology"`
	Term     string `json:"term"`
	Label    string `json:"label,omitempty"`
	ID       string `json:"id,omitempty"`
	IRI      string `json:"iri,omitempty"`
}

// Term is one entry of an ontology term index.
type Term struct {
	Ontology string `json:"ontology"`
	Label    string `json:"label"`
	ID       string `json:"id,omitempty"`
	IRI      string `json:"iri,omitempty"`
}

// ServiceError reports that an ontology could not be consulted.
type ServiceError struct {
	Service  string
	Ontology string
	Term     string
	Cause    error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("ontology service %s unavailable", e.Service)
	if e.Ontology != "" {
		msg += fmt.Sprintf(" (ontology %q, term %q)", e.Ontology, e.Term)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Normalize canonicalises a term for comparison and cache keys: surrounding
// whitespace is removed, inner runs of whitespace collapse to one space and
// the result is lowercased.
func Normalize(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

// NormalizeOntology canonicalises an ontology identifier ("NCBITaxon" and
// "ncbitaxon" are the same ontology).
func NormalizeOntology(ontology string) string {
	return strings.ToLower(strings.TrimSpace(ontology))
}

// ExtractTerm returns the term name of an SDRF value. Values written in
// key=value form ("NT=Trypsin;AC=MS:1001251") yield their NT part; any
// other value is returned unchanged.
func ExtractTerm(value string) string {
	if !strings.Contains(value, "=") {
		return value
	}
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "NT") {
			return strings.TrimSpace(val)
		}
	}
	return value
}
