// Package api exposes the resolver and the entity store over JSON HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/shacl"
	"github.com/c360studio/heritrace/storage"
	"github.com/c360studio/heritrace/urigen"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Resolvers hands out the current resolver. watch.Reloader implements it.
type Resolvers interface {
	Resolver() *shacl.Resolver
}

// Static serves one resolver forever.
type Static struct {
	R *shacl.Resolver
}

// Resolver implements Resolvers.
func (s Static) Resolver() *shacl.Resolver {
	return s.R
}

// HTTPHandler serves form, validation and entity endpoints.
type HTTPHandler struct {
	resolvers Resolvers
	store     storage.EntityStore
	uris      urigen.Generator
	logger    *slog.Logger
}

// NewHTTPHandler creates a handler. The resolvers' data source should be
// store so that validation sees what the handler writes.
func NewHTTPHandler(resolvers Resolvers, store storage.EntityStore, uris urigen.Generator, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		resolvers: resolvers,
		store:     store,
		uris:      uris,
		logger:    logger,
	}
}

// RegisterHTTPHandlers registers the API routes.
// The prefix should include the trailing slash (e.g., "/api/").
func (h *HTTPHandler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"forms", h.handleForms)
	mux.HandleFunc(prefix+"validate", h.handleValidate)
	mux.HandleFunc(prefix+"entities", h.handleEntities)
}

// NewServeMux returns a mux with the API under /api/ plus /metrics and
// /healthz.
func NewServeMux(h *HTTPHandler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterHTTPHandlers("/api/", mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.handleHealth)
	return mux
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Violations []shacl.Violation `json:"violations,omitempty"`
}

// Term is the JSON form of an RDF term.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

func termJSON(t graph.Term) *Term {
	switch v := t.(type) {
	case nil:
		return nil
	case graph.IRI:
		return &Term{Type: "uri", Value: string(v)}
	case graph.Blank:
		return &Term{Type: "bnode", Value: string(v)}
	case graph.Literal:
		out := &Term{Type: "literal", Value: v.Value, Lang: v.Lang}
		if v.Lang == "" {
			out.Datatype = string(v.Datatype)
		}
		return out
	default:
		return &Term{Type: "literal", Value: t.String()}
	}
}

// handleForms handles GET /api/forms?class= - the form field tree.
func (h *HTTPHandler) handleForms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resolver := h.resolvers.Resolver()
	forms := resolver.FormFields()
	if class := r.URL.Query().Get("class"); class != "" {
		forms = resolver.FormFieldsFor(graph.IRI(class))
	}
	if forms == nil {
		forms = shacl.Forms{}
	}
	writeJSON(w, http.StatusOK, forms)
}

// ValidateRequest is the JSON body of POST /api/validate.
type ValidateRequest struct {
	Subject     string   `json:"subject"`
	Predicate   string   `json:"predicate"`
	Value       string   `json:"value"`
	Action      string   `json:"action,omitempty"`
	OldValue    string   `json:"oldValue,omitempty"`
	EntityTypes []string `json:"entityTypes,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// ValidateResponse is the JSON response of POST /api/validate.
type ValidateResponse struct {
	Value    *Term  `json:"value,omitempty"`
	Previous *Term  `json:"previous,omitempty"`
	Error    string `json:"error"`
}

// handleValidate handles POST /api/validate - check one triple edit.
func (h *HTTPHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body ValidateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if !graph.LooksLikeIRI(body.Subject) || !graph.LooksLikeIRI(body.Predicate) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "subject and predicate must be IRIs")
		return
	}
	action, err := shacl.ParseAction(body.Action)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req := shacl.Request{
		Subject:   graph.IRI(body.Subject),
		Predicate: graph.IRI(body.Predicate),
		Value:     body.Value,
		Action:    action,
		Language:  requestLanguage(r, body.Language),
	}
	if body.OldValue != "" {
		req.OldValue = graph.ParseTerm(body.OldValue)
	}
	for _, t := range body.EntityTypes {
		req.EntityTypes = append(req.EntityTypes, graph.IRI(t))
	}

	start := time.Now()
	res, err := h.resolvers.Resolver().ValidateNewTriple(r.Context(), req)
	validationDuration.WithLabelValues("triple").Observe(time.Since(start).Seconds())
	if err != nil {
		validationTotal.WithLabelValues(string(action), "error").Inc()
		if errors.Is(err, shacl.ErrInvalidRequest) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.Error("Validation failed", "subject", body.Subject, "predicate", body.Predicate, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "validation_error", "Validation failed")
		return
	}
	validationTotal.WithLabelValues(string(action), outcome(res.OK())).Inc()

	writeJSON(w, http.StatusOK, ValidateResponse{
		Value:    termJSON(res.Value),
		Previous: termJSON(res.Previous),
		Error:    res.Error,
	})
}

// HealthResponse is the JSON response of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Shapes int    `json:"shapes"`
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Shapes: len(h.resolvers.Resolver().Shapes().All()),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// requestLanguage returns the base language for messages: the explicit one,
// else the Accept-Language header.
func requestLanguage(r *http.Request, explicit string) string {
	base, _ := shacl.MatchLanguage(explicit, r.Header.Get("Accept-Language")).Base()
	return base.String()
}

func outcome(ok bool) string {
	if ok {
		return "accepted"
	}
	return "rejected"
}
