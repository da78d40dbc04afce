package ontology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const tracerName = "sdrfcheck/ontology"

// DefaultOLSBaseURL is the public EBI Ontology Lookup Service.
const DefaultOLSBaseURL = "https://www.ebi.ac.uk/ols4"

// OLSConfig configures an OLSClient.
type OLSConfig struct {
	// BaseURL of the OLS instance, without the /api suffix.
	BaseURL string

	// Timeout bounds a single HTTP request.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries for 5xx responses and transport errors.
	MaxRetries int

	// RetryBackoff is the first retry delay; later retries double it.
	// Default: 500ms
	RetryBackoff time.Duration

	// FailureThreshold consecutive failures mark the service unavailable;
	// later lookups fail immediately until ProbeInterval has passed.
	// Default: 3
	FailureThreshold int

	// ProbeInterval is how long an unavailable service is left alone.
	// Default: 30 seconds
	ProbeInterval time.Duration

	// RequestsPerSecond caps the request rate; zero disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the rate.
	// Default: 1
	Burst int

	Logger *slog.Logger
}

func (c *OLSConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultOLSBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = 30 * time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// OLSClient resolves terms through the OLS search API.
type OLSClient struct {
	config OLSConfig
	client *http.Client
	logger *slog.Logger
	bucket *TokenBucket // nil when unpaced

	mu                  sync.Mutex
	consecutiveFailures int
	unavailableSince    time.Time
}

// NewOLSClient creates a client. Zero config fields take defaults.
func NewOLSClient(config OLSConfig) *OLSClient {
	config.applyDefaults()
	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	c := &OLSClient{
		config: config,
		client: &http.Client{Transport: transport, Timeout: config.Timeout},
		logger: config.Logger.With("component", "ols"),
	}
	if config.RequestsPerSecond > 0 {
		c.bucket = NewTokenBucket(config.Burst, config.RequestsPerSecond)
	}
	return c
}

type olsSearchResponse struct {
	Response struct {
		NumFound int      `json:"numFound"`
		Docs     []olsDoc `json:"docs"`
	} `json:"response"`
}

type olsDoc struct {
	IRI          string `json:"iri"`
	Label        string `json:"label"`
	OboID        string `json:"obo_id"`
	ShortForm    string `json:"short_form"`
	OntologyName string `json:"ontology_name"`
}

// Lookup implements Resolver using an exact label search restricted to
// the given ontology.
func (c *OLSClient) Lookup(ctx context.Context, ontology, term string) (Match, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ontology.ols.lookup")
	defer span.End()
	span.SetAttributes(
		attribute.String("ontology", ontology),
		attribute.String("term", term),
	)

	m := Match{Ontology: NormalizeOntology(ontology), Term: term}

	if err := c.available(); err != nil {
		span.SetStatus(codes.Error, "service unavailable")
		return m, &ServiceError{Service: "ols", Ontology: ontology, Term: term, Cause: err}
	}

	q := url.Values{}
	q.Set("q", strings.TrimSpace(term))
	q.Set("ontology", m.Ontology)
	q.Set("exact", "true")
	q.Set("queryFields", "label,synonym")
	q.Set("fieldList", "iri,label,obo_id,short_form,ontology_name")
	q.Set("rows", "10")
	endpoint := c.config.BaseURL + "/api/search?" + q.Encode()

	body, err := c.get(ctx, endpoint)
	c.record(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return m, &ServiceError{Service: "ols", Ontology: ontology, Term: term, Cause: err}
	}

	var resp olsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return m, &ServiceError{Service: "ols", Ontology: ontology, Term: term,
			Cause: fmt.Errorf("failed to decode search response: %w", err)}
	}

	want := Normalize(term)
	var best *olsDoc
	for i := range resp.Response.Docs {
		doc := &resp.Response.Docs[i]
		if doc.OntologyName != "" && NormalizeOntology(doc.OntologyName) != m.Ontology {
			continue
		}
		// exact search also matches synonyms; prefer a label hit
		if best == nil || (Normalize(doc.Label) == want && Normalize(best.Label) != want) {
			best = doc
		}
	}
	if best != nil {
		m.Found = true
		m.Label = best.Label
		m.ID = best.OboID
		if m.ID == "" {
			m.ID = best.ShortForm
		}
		m.IRI = best.IRI
	}
	span.SetAttributes(attribute.Bool("found", m.Found))
	return m, nil
}

var errUnavailable = errors.New("marked unavailable after repeated failures")

func (c *OLSClient) available() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailableSince.IsZero() {
		return nil
	}
	if time.Since(c.unavailableSince) >= c.config.ProbeInterval {
		// let one request through as a probe
		c.unavailableSince = time.Time{}
		c.consecutiveFailures = c.config.FailureThreshold - 1
		return nil
	}
	return errUnavailable
}

func (c *OLSClient) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.consecutiveFailures = 0
		c.unavailableSince = time.Time{}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	c.consecutiveFailures++
	if c.consecutiveFailures >= c.config.FailureThreshold && c.unavailableSince.IsZero() {
		c.unavailableSince = time.Now()
		c.logger.Warn("ontology service marked unavailable",
			"base_url", c.config.BaseURL,
			"consecutive_failures", c.consecutiveFailures,
			"error", err,
		)
	}
}

// Available reports whether the client currently considers OLS reachable.
func (c *OLSClient) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unavailableSince.IsZero()
}

func (c *OLSClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryBackoff << (attempt - 1)
			c.logger.Debug("retrying ontology lookup",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.bucket != nil {
			if err := c.bucket.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("request rejected: status %d", resp.StatusCode)
		}
		return body, nil
	}
	return nil, lastErr
}
