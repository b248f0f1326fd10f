package storage

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/knakk/rdf"
	"github.com/knakk/sparql"

	"github.com/c360studio/heritrace/graph"
)

//go:embed queries.sparql
var queryFile string

var queries = sparql.LoadBank(strings.NewReader(queryFile))

// SPARQLConfig configures a SPARQLStore.
type SPARQLConfig struct {
	// Endpoint is the SPARQL 1.1 query URL.
	Endpoint string

	// UpdateEndpoint receives SPARQL updates. Empty means Endpoint.
	UpdateEndpoint string

	Username string
	Password string

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration

	// Retry controls retries of failed requests.
	Retry retry.Config
}

// SPARQLStore reads and writes entity data on a remote SPARQL endpoint.
type SPARQLStore struct {
	query  *sparql.Repo
	update *sparql.Repo
	retry  retry.Config
}

// NewSPARQLStore creates a store for the configured endpoint. The knakk
// client shares http.DefaultClient, so Timeout and credentials apply to the
// whole process.
func NewSPARQLStore(cfg SPARQLConfig) (*SPARQLStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("sparql endpoint required")
	}
	if cfg.UpdateEndpoint == "" {
		cfg.UpdateEndpoint = cfg.Endpoint
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	var opts []func(*sparql.Repo) error
	if cfg.Timeout > 0 {
		opts = append(opts, sparql.Timeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts, sparql.BasicAuth(cfg.Username, cfg.Password))
	}

	q, err := sparql.NewRepo(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("sparql repo: %w", err)
	}
	u, err := sparql.NewRepo(cfg.UpdateEndpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("sparql update repo: %w", err)
	}
	return &SPARQLStore{query: q, update: u, retry: cfg.Retry}, nil
}

// Triples implements EntityStore.
func (s *SPARQLStore) Triples(ctx context.Context, subject graph.Term) ([]graph.Triple, error) {
	rows, err := s.selectRows(ctx, "triples", subject)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Triple, 0, len(rows))
	for _, row := range rows {
		p, err := rowIRI(row, "p")
		if err != nil {
			return nil, err
		}
		o, err := rowTerm(row, "o")
		if err != nil {
			return nil, err
		}
		out = append(out, graph.Triple{Subject: subject, Predicate: p, Object: o})
	}
	return out, nil
}

// Types implements EntityStore.
func (s *SPARQLStore) Types(ctx context.Context, subject graph.Term) ([]graph.IRI, error) {
	return s.typeColumn(ctx, "types", subject)
}

// InverseTypes implements EntityStore.
func (s *SPARQLStore) InverseTypes(ctx context.Context, subject graph.Term) ([]graph.IRI, error) {
	return s.typeColumn(ctx, "inverse-types", subject)
}

// Exists implements EntityStore.
func (s *SPARQLStore) Exists(ctx context.Context, subject graph.Term) (bool, error) {
	q, err := prepare("exists", subject)
	if err != nil {
		return false, err
	}
	res, err := s.run(ctx, q)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", subject, err)
	}
	return res.Boolean, nil
}

// Describe implements EntityStore.
func (s *SPARQLStore) Describe(ctx context.Context, subject graph.Term) (*graph.Graph, error) {
	rows, err := s.selectRows(ctx, "describe", subject)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("describe %s: %w", subject, ErrNotFound)
	}

	g := graph.New()
	for _, row := range rows {
		sub, err := rowTerm(row, "s")
		if err != nil {
			return nil, err
		}
		p, err := rowIRI(row, "p")
		if err != nil {
			return nil, err
		}
		o, err := rowTerm(row, "o")
		if err != nil {
			return nil, err
		}
		g.Add(graph.Triple{Subject: sub, Predicate: p, Object: o})
	}
	return g, nil
}

// Apply implements EntityStore. Blank nodes cannot be removed through
// DELETE DATA and are rejected.
func (s *SPARQLStore) Apply(ctx context.Context, cs Changeset) error {
	if cs.Empty() {
		return nil
	}
	for _, t := range cs.Remove {
		if t.Subject.Kind() == graph.KindBlank || t.Object.Kind() == graph.KindBlank {
			return fmt.Errorf("remove %s: %w", t, ErrInvalidSubject)
		}
	}

	q, err := queries.Prepare("update", cs)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}

	err = retry.Do(ctx, s.retry, func() error {
		if err := ctx.Err(); err != nil {
			return retry.NonRetryable(err)
		}
		return s.update.Update(q)
	})
	if err != nil {
		return fmt.Errorf("apply changeset: %w", err)
	}
	return nil
}

func (s *SPARQLStore) typeColumn(ctx context.Context, key string, subject graph.Term) ([]graph.IRI, error) {
	rows, err := s.selectRows(ctx, key, subject)
	if err != nil {
		return nil, err
	}
	var out []graph.IRI
	seen := make(map[graph.IRI]bool)
	for _, row := range rows {
		t, err := rowIRI(row, "type")
		if err != nil {
			return nil, err
		}
		out = appendUniqueIRIs(out, seen, t)
	}
	return out, nil
}

func (s *SPARQLStore) selectRows(ctx context.Context, key string, subject graph.Term) ([]map[string]rdf.Term, error) {
	q, err := prepare(key, subject)
	if err != nil {
		return nil, err
	}
	res, err := s.run(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", key, subject, err)
	}
	return res.Solutions(), nil
}

// run executes a read query with retries.
func (s *SPARQLStore) run(ctx context.Context, q string) (*sparql.Results, error) {
	return retry.DoWithResult(ctx, s.retry, func() (*sparql.Results, error) {
		res, err := s.query.Query(contextCall{ctx: ctx, query: q})
		if err != nil && ctx.Err() != nil {
			return nil, retry.NonRetryable(ctx.Err())
		}
		return res, err
	})
}

func prepare(key string, subject graph.Term) (string, error) {
	if !graph.IsIRI(subject) {
		return "", fmt.Errorf("%s of %v: %w", key, subject, ErrInvalidSubject)
	}
	q, err := queries.Prepare(key, struct{ Subject string }{subject.NTriples()})
	if err != nil {
		return "", fmt.Errorf("prepare %s: %w", key, err)
	}
	return q, nil
}

func rowTerm(row map[string]rdf.Term, name string) (graph.Term, error) {
	v, ok := row[name]
	if !ok {
		return nil, retry.NonRetryable(fmt.Errorf("malformed result: unbound ?%s", name))
	}
	t, err := graph.FromRDF(v)
	if err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("malformed result: %w", err))
	}
	return t, nil
}

func rowIRI(row map[string]rdf.Term, name string) (graph.IRI, error) {
	t, err := rowTerm(row, name)
	if err != nil {
		return "", err
	}
	iri, ok := t.(graph.IRI)
	if !ok {
		return "", retry.NonRetryable(fmt.Errorf("malformed result: ?%s is not an IRI", name))
	}
	return iri, nil
}

// contextCall is a sparql.Provider that binds the request to a context.
type contextCall struct {
	ctx   context.Context
	query string
}

func (c contextCall) GenRequest(endpoint string) (*http.Request, error) {
	form := url.Values{}
	form.Set("query", c.query)
	body := form.Encode()

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, endpoint, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Accept", "application/sparql-results+json")
	return req, nil
}
