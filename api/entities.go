package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/c360studio/heritrace/export"
	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/shacl"
	"github.com/c360studio/heritrace/storage"
)

// CreateEntityRequest is the JSON body of POST /api/entities.
type CreateEntityRequest struct {
	Class      string              `json:"class"`
	Shape      string              `json:"shape,omitempty"`
	Properties map[string][]string `json:"properties"`
	Language   string              `json:"language,omitempty"`
}

// CreateEntityResponse is the JSON response of a successful creation.
type CreateEntityResponse struct {
	URI     string `json:"uri"`
	Triples int    `json:"triples"`
}

func (h *HTTPHandler) handleEntities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleExport(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCreate handles POST /api/entities - validate and store a new entity.
func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateEntityRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if !graph.LooksLikeIRI(body.Class) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "class must be an IRI")
		return
	}
	for predicate := range body.Properties {
		if !graph.LooksLikeIRI(predicate) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "property keys must be IRIs: "+predicate)
			return
		}
	}

	ctx := r.Context()
	resolver := h.resolvers.Resolver()
	class := graph.IRI(body.Class)
	if body.Shape != "" && !targetsClass(resolver, class, body.Shape) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "shape does not target class: "+body.Shape)
		return
	}
	if h.uris == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_configured", "No URI generator configured")
		return
	}

	subject, err := h.uris.Generate(ctx, class)
	if err != nil {
		h.logger.Error("URI generation failed", "class", body.Class, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "uri_error", "Failed to generate entity URI")
		entitiesCreated.WithLabelValues("error").Inc()
		return
	}
	lang := requestLanguage(r, body.Language)
	start := time.Now()

	// Coerce every value through the triple validator, then check the whole
	// entity so that cardinality across values is enforced.
	g := graph.New()
	g.Add(graph.Triple{Subject: subject, Predicate: graph.RDFType, Object: class})
	var violations []shacl.Violation
	for _, predicate := range sortedKeys(body.Properties) {
		for _, value := range body.Properties[predicate] {
			res, err := resolver.ValidateNewTriple(ctx, shacl.Request{
				Subject:     subject,
				Predicate:   graph.IRI(predicate),
				Value:       value,
				Action:      shacl.ActionCreate,
				EntityTypes: []graph.IRI{class},
				Language:    lang,

				DeferCardinality: true,
			})
			if err != nil {
				h.createFailed(w, subject, err)
				return
			}
			if !res.OK() {
				violations = append(violations, shacl.Violation{
					Subject:   string(subject),
					Predicate: predicate,
					Value:     value,
					Message:   res.Error,
				})
				continue
			}
			g.Add(graph.Triple{Subject: subject, Predicate: graph.IRI(predicate), Object: res.Value})
		}
	}

	if len(violations) == 0 {
		violations, err = resolver.ValidateGraph(ctx, g, subject, lang)
		if err != nil {
			h.createFailed(w, subject, err)
			return
		}
	}
	validationDuration.WithLabelValues("entity").Observe(time.Since(start).Seconds())

	if len(violations) > 0 {
		entitiesCreated.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:      "validation_failed",
			Message:    "The entity violates its shapes",
			Violations: violations,
		})
		return
	}

	if err := h.store.Apply(ctx, storage.Changeset{Add: g.Triples()}); err != nil {
		h.createFailed(w, subject, err)
		return
	}
	entitiesCreated.WithLabelValues("created").Inc()
	h.logger.Info("Entity created", "uri", string(subject), "class", body.Class, "triples", g.Len())

	writeJSON(w, http.StatusCreated, CreateEntityResponse{
		URI:     string(subject),
		Triples: g.Len(),
	})
}

func (h *HTTPHandler) createFailed(w http.ResponseWriter, subject graph.IRI, err error) {
	entitiesCreated.WithLabelValues("error").Inc()
	h.logger.Error("Entity creation failed", "uri", string(subject), "error", err)
	writeJSONError(w, http.StatusInternalServerError, "create_error", "Failed to create entity")
}

// handleExport handles GET /api/entities?uri=&format= - serialize an entity.
// Without format the Accept header is negotiated, defaulting to Turtle.
func (h *HTTPHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if !graph.LooksLikeIRI(uri) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "uri query parameter must be an IRI")
		return
	}

	format, ok := export.Negotiate(r.Header.Get("Accept"), export.FormatTurtle)
	if name := r.URL.Query().Get("format"); name != "" {
		var err error
		if format, err = export.ParseFormat(name); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_format", err.Error())
			return
		}
		ok = true
	}
	if !ok {
		writeJSONError(w, http.StatusNotAcceptable, "not_acceptable", "No supported RDF format is acceptable")
		return
	}

	g, err := h.store.Describe(r.Context(), graph.IRI(uri))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Entity not found")
		return
	}
	if err != nil {
		h.logger.Error("Describe failed", "uri", uri, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "describe_error", "Failed to read entity")
		return
	}

	exporter := export.NewRDFExporter()
	exporter.AddGraph(g)
	out, err := exporter.Export(format)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "export_error", err.Error())
		return
	}
	exportsTotal.WithLabelValues(string(format)).Inc()

	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func targetsClass(resolver *shacl.Resolver, class graph.IRI, shape string) bool {
	for _, ns := range resolver.ShapesFor(class) {
		if ns.ID.String() == shape {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
