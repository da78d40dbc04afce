package ontology

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExtractTerm(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"homo sapiens", "homo sapiens"},
		{"NT=Trypsin;AC=MS:1001251", "Trypsin"},
		{"AC=MS:1001251;NT=Trypsin", "Trypsin"},
		{"nt = Lys-C ; AC=MS:1001309", "Lys-C"},
		{"AC=MS:1001251", "AC=MS:1001251"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := ExtractTerm(tt.value); got != tt.want {
				t.Errorf("ExtractTerm(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Homo   Sapiens "); got != "homo sapiens" {
		t.Errorf("Normalize() = %q", got)
	}
	if got := NormalizeOntology(" NCBITaxon "); got != "ncbitaxon" {
		t.Errorf("NormalizeOntology() = %q", got)
	}
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(Term{Ontology: "NCBITaxon", Label: "Homo sapiens", ID: "NCBITaxon:9606"})
	ctx := context.Background()

	m, err := r.Lookup(ctx, "ncbitaxon", "homo sapiens")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !m.Found || m.ID != "NCBITaxon:9606" || m.Term != "homo sapiens" {
		t.Errorf("Lookup() = %+v", m)
	}

	m, err = r.Lookup(ctx, "efo", "homo sapiens")
	if err != nil || m.Found {
		t.Errorf("Lookup(efo) = %+v, %v; want not found", m, err)
	}
}

// countingResolver counts upstream calls and can be made to fail.
type countingResolver struct {
	calls atomic.Int64
	delay time.Duration
	fail  atomic.Bool
	inner *StaticResolver
}

func (c *countingResolver) Lookup(ctx context.Context, ontology, term string) (Match, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail.Load() {
		return Match{}, &ServiceError{Service: "test", Ontology: ontology, Term: term, Cause: errors.New("down")}
	}
	return c.inner.Lookup(ctx, ontology, term)
}

func TestCache_Memoises(t *testing.T) {
	up := &countingResolver{inner: NewStaticResolver(Term{Ontology: "uberon", Label: "liver"})}
	c := NewCache(up)
	ctx := context.Background()

	for _, term := range []string{"liver", "Liver", " liver "} {
		m, err := c.Lookup(ctx, "UBERON", term)
		if err != nil || !m.Found {
			t.Fatalf("Lookup(%q) = %+v, %v", term, m, err)
		}
		if m.Term != term {
			t.Errorf("Match.Term = %q, want %q", m.Term, term)
		}
	}
	if n := up.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}

	// misses are cached too
	for i := 0; i < 2; i++ {
		if m, _ := c.Lookup(ctx, "uberon", "kidney"); m.Found {
			t.Error("kidney should not be found")
		}
	}
	if n := up.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}

	st := c.Stats()
	if st.Entries != 2 || st.Hits != 3 || st.Misses != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCache_ConcurrentFirstUse(t *testing.T) {
	up := &countingResolver{
		delay: 20 * time.Millisecond,
		inner: NewStaticResolver(Term{Ontology: "cl", Label: "T cell"}),
	}
	c := NewCache(up)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.Lookup(context.Background(), "cl", "t cell")
			if err != nil || !m.Found {
				t.Errorf("Lookup() = %+v, %v", m, err)
			}
		}()
	}
	wg.Wait()

	if n := up.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestCache_FailuresNotCached(t *testing.T) {
	up := &countingResolver{inner: NewStaticResolver(Term{Ontology: "efo", Label: "normal"})}
	up.fail.Store(true)
	c := NewCache(up)
	ctx := context.Background()

	_, err := c.Lookup(ctx, "efo", "normal")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("Lookup() error = %v, want *ServiceError", err)
	}
	if !IsServiceError(err) {
		t.Error("IsServiceError() = false")
	}

	up.fail.Store(false)
	m, err := c.Lookup(ctx, "efo", "normal")
	if err != nil || !m.Found {
		t.Errorf("Lookup() after recovery = %+v, %v", m, err)
	}
	if c.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", c.Stats().Failures)
	}
}

func TestCache_CacheOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, Term{Ontology: "ms", Label: "Orbitrap Fusion Lumos", ID: "MS:1002732"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	c := NewCache(nil, WithStore(store))
	m, err := c.Lookup(ctx, "MS", "orbitrap fusion lumos")
	if err != nil || !m.Found || m.ID != "MS:1002732" {
		t.Errorf("Lookup() = %+v, %v", m, err)
	}
	m, err = c.Lookup(ctx, "ms", "unknown instrument")
	if err != nil || m.Found {
		t.Errorf("Lookup(unknown) = %+v, %v; want not found", m, err)
	}
	if c.Stats().StoreHits != 1 {
		t.Errorf("StoreHits = %d, want 1", c.Stats().StoreHits)
	}
}

func TestCache_WriteBack(t *testing.T) {
	store := openTestStore(t)
	up := &countingResolver{inner: NewStaticResolver(Term{Ontology: "pride", Label: "label free sample", ID: "PRIDE:0000442"})}
	ctx := context.Background()

	c := NewCache(up, WithStore(store))
	if m, err := c.Lookup(ctx, "pride", "label free sample"); err != nil || !m.Found {
		t.Fatalf("Lookup() = %+v, %v", m, err)
	}

	m, err := store.Lookup(ctx, "pride", "Label Free Sample")
	if err != nil || !m.Found || m.ID != "PRIDE:0000442" {
		t.Errorf("store Lookup() = %+v, %v", m, err)
	}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "terms.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Import(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"id\tlabel\tiri",
		"NCBITaxon:9606\tHomo sapiens\thttp://purl.obolibrary.org/obo/NCBITaxon_9606",
		"NCBITaxon:10090\tMus musculus\t",
		"\t\t",
		"NCBITaxon:9606\tHomo sapiens\t",
	}, "\n")

	n, err := store.Import(ctx, strings.NewReader(input), "NCBITaxon")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Import() = %d, want 3", n)
	}

	count, err := store.Count(ctx, "ncbitaxon")
	if err != nil || count != 2 {
		t.Errorf("Count() = %d, %v; want 2", count, err)
	}

	m, err := store.Lookup(ctx, "ncbitaxon", "mus MUSCULUS")
	if err != nil || !m.Found || m.ID != "NCBITaxon:10090" {
		t.Errorf("Lookup() = %+v, %v", m, err)
	}

	onts, err := store.Ontologies(ctx)
	if err != nil || onts["ncbitaxon"] != 2 {
		t.Errorf("Ontologies() = %v, %v", onts, err)
	}
}

func TestSQLiteStore_ImportErrors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		ontology string
	}{
		{name: "empty", input: ""},
		{name: "no label column", input: "id\tname\nX:1\tfoo\n", ontology: "x"},
		{name: "no ontology", input: "label\nfoo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Import(ctx, strings.NewReader(tt.input), tt.ontology); err == nil {
				t.Error("Import() expected error")
			}
		})
	}
}

func TestSQLiteStore_OntologyColumn(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	input := "ontology\tlabel\nefo\tnormal\nmondo\tdiabetes mellitus\n"
	if _, err := store.Import(ctx, strings.NewReader(input), ""); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if m, _ := store.Lookup(ctx, "mondo", "diabetes mellitus"); !m.Found {
		t.Error("mondo term not found")
	}
	if m, _ := store.Lookup(ctx, "efo", "diabetes mellitus"); m.Found {
		t.Error("term found in wrong ontology")
	}
}

func olsHandler(t *testing.T, hits *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/search" {
			t.Errorf("path = %s, want /api/search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("exact") != "true" {
			t.Errorf("exact = %q, want true", q.Get("exact"))
		}
		w.Header().Set("Content-Type", "application/json")
		if q.Get("ontology") == "ncbitaxon" && strings.EqualFold(q.Get("q"), "homo sapiens") {
			fmt.Fprint(w, `{"response":{"numFound":1,"docs":[{"iri":"http://purl.obolibrary.org/obo/NCBITaxon_9606","label":"Homo sapiens","obo_id":"NCBITaxon:9606","ontology_name":"ncbitaxon"}]}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"numFound":0,"docs":[]}}`)
	}
}

func TestOLSClient_Lookup(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(olsHandler(t, &hits))
	defer srv.Close()

	c := NewOLSClient(OLSConfig{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	m, err := c.Lookup(ctx, "NCBITaxon", "homo sapiens")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !m.Found || m.ID != "NCBITaxon:9606" || m.Label != "Homo sapiens" {
		t.Errorf("Lookup() = %+v", m)
	}

	m, err = c.Lookup(ctx, "ncbitaxon", "homo sapien")
	if err != nil || m.Found {
		t.Errorf("Lookup(misspelt) = %+v, %v; want not found", m, err)
	}
}

func TestOLSClient_ServiceErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOLSClient(OLSConfig{
		BaseURL:          srv.URL,
		MaxRetries:       1,
		RetryBackoff:     time.Millisecond,
		FailureThreshold: 2,
		ProbeInterval:    time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Lookup(ctx, "efo", "normal")
		var se *ServiceError
		if !errors.As(err, &se) {
			t.Fatalf("Lookup() error = %v, want *ServiceError", err)
		}
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("requests = %d, want 4 (two lookups, one retry each)", got)
	}
	if c.Available() {
		t.Error("client should be marked unavailable")
	}

	// short-circuits without a request
	if _, err := c.Lookup(ctx, "efo", "normal"); !IsServiceError(err) {
		t.Errorf("Lookup() error = %v, want service error", err)
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("requests = %d, want 4", got)
	}
}

func TestOLSClient_RejectedNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOLSClient(OLSConfig{BaseURL: srv.URL, MaxRetries: 3, RetryBackoff: time.Millisecond})
	if _, err := c.Lookup(context.Background(), "efo", "normal"); !IsServiceError(err) {
		t.Errorf("Lookup() error = %v, want service error", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
