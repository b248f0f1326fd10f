package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/shacl"
	"github.com/c360studio/heritrace/storage"
	"github.com/c360studio/heritrace/urigen"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

const (
	fabioArticle   = "http://purl.org/spar/fabio/JournalArticle"
	dctermsTitle   = "http://purl.org/dc/terms/title"
	prismPubDate   = "http://prismstandard.org/namespaces/basic/2.0/publicationDate"
	existingEntity = "https://w3id.org/oc/meta/br/0601"
)

const storeData = `
@prefix fabio: <http://purl.org/spar/fabio/> .
@prefix dcterms: <http://purl.org/dc/terms/> .

<https://w3id.org/oc/meta/br/0601> a fabio:JournalArticle ;
    dcterms:title "Existing article" .
`

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	g, err := graph.ParseString(storeData, graph.FormatTurtle)
	require.NoError(t, err)
	store := storage.NewMemoryStore(g)

	resolver, err := shacl.Load(
		[]string{filepath.Join("testdata", "shapes.ttl")},
		filepath.Join("testdata", "display_rules.yaml"),
		store,
		shacl.Options{},
	)
	require.NoError(t, err)

	uris := &urigen.MetaGenerator{
		Base:           "https://w3id.org/oc/meta",
		SupplierPrefix: "070",
		Counter:        storage.NewMemoryCounter(),
	}
	h := NewHTTPHandler(Static{R: resolver}, store, uris, nil)
	srv := httptest.NewServer(NewServeMux(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandleForms(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/forms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	forms := decode[shacl.Forms](t, resp)
	assert.NotEmpty(t, forms)

	resp2, err := http.Get(srv.URL + "/api/forms?class=" + url.QueryEscape(fabioArticle))
	require.NoError(t, err)
	defer resp2.Body.Close()
	article := decode[shacl.Forms](t, resp2)
	require.Len(t, article, 1)
	assert.Equal(t, "Journal Article", article[0].DisplayName)

	resp3, err := http.Post(srv.URL+"/api/forms", "application/json", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestHandleValidate(t *testing.T) {
	srv, store := newTestServer(t)

	t.Run("coerces value", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/validate", ValidateRequest{
			Subject:     "https://w3id.org/oc/meta/br/0999",
			Predicate:   prismPubDate,
			Value:       "2024-05",
			EntityTypes: []string{fabioArticle},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode[ValidateResponse](t, resp)
		assert.Empty(t, out.Error)
		require.NotNil(t, out.Value)
		assert.Equal(t, "http://www.w3.org/2001/XMLSchema#gYearMonth", out.Value.Datatype)
	})

	t.Run("max count in Italian", func(t *testing.T) {
		data, err := json.Marshal(ValidateRequest{
			Subject:   existingEntity,
			Predicate: dctermsTitle,
			Value:     "Second title",
		})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/validate", bytes.NewReader(data))
		require.NoError(t, err)
		req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.5")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		out := decode[ValidateResponse](t, resp)
		assert.Contains(t, out.Error, "Title")
		assert.Contains(t, out.Error, "al massimo")
		assert.Nil(t, out.Value)
	})

	t.Run("update keeps stored language and datatype", func(t *testing.T) {
		subject := graph.IRI(existingEntity)
		require.NoError(t, store.Apply(context.Background(), storage.Changeset{Add: []graph.Triple{
			{Subject: subject, Predicate: "http://example.org/greeting", Object: graph.NewLangLiteral("salve", "it")},
			{Subject: subject, Predicate: "http://example.org/pages", Object: graph.NewTypedLiteral("41", xsd.Integer)},
		}}))

		tests := []struct {
			predicate string
			old       string
			value     string
			want      Term
		}{
			{"http://example.org/greeting", "salve", "ciao", Term{Type: "literal", Value: "ciao", Lang: "it"}},
			{"http://example.org/pages", "41", "42", Term{Type: "literal", Value: "42", Datatype: xsd.Integer}},
		}
		for _, tt := range tests {
			resp := postJSON(t, srv.URL+"/api/validate", ValidateRequest{
				Subject:   existingEntity,
				Predicate: tt.predicate,
				Value:     tt.value,
				Action:    "update",
				OldValue:  tt.old,
			})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			out := decode[ValidateResponse](t, resp)
			assert.Empty(t, out.Error)
			require.NotNil(t, out.Value)
			assert.Equal(t, tt.want, *out.Value)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/validate", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown action", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/validate", ValidateRequest{
			Subject:   existingEntity,
			Predicate: dctermsTitle,
			Action:    "merge",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete without old value", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/validate", ValidateRequest{
			Subject:   existingEntity,
			Predicate: dctermsTitle,
			Action:    "delete",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleCreateEntity(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entities", CreateEntityRequest{
		Class: fabioArticle,
		Shape: "http://schema.org/JournalArticleShape",
		Properties: map[string][]string{
			dctermsTitle: {"A new article"},
			prismPubDate: {"2023"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[CreateEntityResponse](t, resp)
	assert.Equal(t, "https://w3id.org/oc/meta/br/0701", out.URI)
	assert.Equal(t, 3, out.Triples)

	triples, err := store.Triples(t.Context(), graph.IRI(out.URI))
	require.NoError(t, err)
	assert.Contains(t, triples, graph.Triple{
		Subject:   graph.IRI(out.URI),
		Predicate: prismPubDate,
		Object:    graph.NewTypedLiteral("2023", "http://www.w3.org/2001/XMLSchema#gYear"),
	})
}

func TestHandleCreateEntityViolations(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("bad value", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/entities", CreateEntityRequest{
			Class: fabioArticle,
			Properties: map[string][]string{
				dctermsTitle: {"Title"},
				prismPubDate: {"sometime"},
			},
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		out := decode[ErrorResponse](t, resp)
		require.Len(t, out.Violations, 1)
		assert.Equal(t, prismPubDate, out.Violations[0].Predicate)
	})

	t.Run("cardinality across values", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/entities", CreateEntityRequest{
			Class:      fabioArticle,
			Properties: map[string][]string{dctermsTitle: {"One", "Two"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		out := decode[ErrorResponse](t, resp)
		require.NotEmpty(t, out.Violations)
		assert.Equal(t, dctermsTitle, out.Violations[0].Predicate)
	})

	t.Run("missing required", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/entities", CreateEntityRequest{Class: fabioArticle})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("shape for another class", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/entities", CreateEntityRequest{
			Class: fabioArticle,
			Shape: "http://schema.org/AgentShape",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleExport(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/entities?uri=" + url.QueryEscape(existingEntity)

	resp, err := http.Get(base)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/turtle", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dcterms:title "Existing article"`)

	resp2, err := http.Get(base + "&format=nt")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "application/n-triples", resp2.Header.Get("Content-Type"))

	req, err := http.NewRequest(http.MethodGet, base, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotAcceptable, resp3.StatusCode)

	resp4, err := http.Get(srv.URL + "/api/entities?uri=" + url.QueryEscape("https://w3id.org/oc/meta/br/missing"))
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp4.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Shapes)

	postJSON(t, srv.URL+"/api/validate", ValidateRequest{
		Subject:   existingEntity,
		Predicate: dctermsTitle,
		Value:     "x",
	})
	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "heritrace_validation_total")
}
