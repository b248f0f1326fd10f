package export

import (
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat resolves a format name, file extension or MIME type.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "ttl":
		return FormatTurtle, nil
	case "nt", "n-triples":
		return FormatNTriples, nil
	case "json-ld", "json":
		return FormatJSONLD, nil
	}
	for _, info := range FormatRegistry {
		if key == string(info.Name) || key == info.MIMEType || key == info.Extension {
			return info.Name, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// FormatForPath picks the format from a file name.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Negotiate picks the best format for an HTTP Accept header. Wildcards and
// an empty header select fallback; ok is false when nothing acceptable is
// supported.
func Negotiate(accept string, fallback Format) (Format, bool) {
	if strings.TrimSpace(accept) == "" {
		return fallback, true
	}

	type candidate struct {
		format Format
		q      float64
	}
	var candidates []candidate
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if q, err = strconv.ParseFloat(v, 64); err != nil {
				continue
			}
		}
		if q <= 0 {
			continue
		}

		var format Format
		switch mediaType {
		case "*/*", "text/*":
			format = fallback
		default:
			if format, err = ParseFormat(mediaType); err != nil {
				continue
			}
		}
		candidates = append(candidates, candidate{format: format, q: q})
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].q > candidates[j].q
	})
	return candidates[0].format, true
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer with no prefixes.
func NewTurtleWriter() *TurtleWriter {
	return &TurtleWriter{
		prefixes: make(map[string]string),
	}
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WritePrefixes writes prefix declarations.
func (w *TurtleWriter) WritePrefixes() {
	if len(w.prefixes) == 0 {
		return
	}

	// Sort prefixes for consistent output
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteSubject starts a new subject block.
func (w *TurtleWriter) WriteSubject(subject graph.Term) {
	w.sb.WriteString(w.term(subject))
	w.sb.WriteString("\n")
}

// WritePredicate writes a predicate with its comma-separated objects.
func (w *TurtleWriter) WritePredicate(predicate graph.IRI, objects []graph.Term, last bool) {
	terminator := " ;"
	if last {
		terminator = " ."
	}
	name := "a"
	if predicate != graph.RDFType {
		name = w.term(predicate)
	}
	rendered := make([]string, len(objects))
	for i, o := range objects {
		rendered[i] = w.term(o)
	}
	w.sb.WriteString(fmt.Sprintf("    %s %s%s\n", name, strings.Join(rendered, ", "), terminator))
}

// WriteBlank writes a blank line for readability.
func (w *TurtleWriter) WriteBlank() {
	w.sb.WriteString("\n")
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

// term renders a term, compacting IRIs whose prefix was declared.
func (w *TurtleWriter) term(t graph.Term) string {
	switch v := t.(type) {
	case graph.IRI:
		return w.iri(v)
	case graph.Literal:
		quoted := `"` + graph.EscapeString(v.Value) + `"`
		switch {
		case v.Lang != "":
			return quoted + "@" + v.Lang
		case v.Datatype == "" || v.Datatype == xsd.String:
			return quoted
		default:
			return quoted + "^^" + w.iri(v.Datatype)
		}
	default:
		return t.NTriples()
	}
}

func (w *TurtleWriter) iri(iri graph.IRI) string {
	name := vocabulary.Compact(string(iri))
	if prefix, _, ok := strings.Cut(name, ":"); ok && name != string(iri) {
		if _, declared := w.prefixes[prefix]; declared {
			return name
		}
	}
	return iri.NTriples()
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(t graph.Triple) {
	w.sb.WriteString(t.String())
	w.sb.WriteString("\n")
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for JSONLDNode.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// JSONLDWriter writes RDF in JSON-LD format.
type JSONLDWriter struct {
	doc JSONLDDocument
}

// NewJSONLDWriter creates a new JSON-LD writer.
func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{
		doc: JSONLDDocument{
			Context: make(map[string]any),
			Graph:   make([]JSONLDNode, 0),
		},
	}
}

// SetContext sets the @context with prefixes.
func (w *JSONLDWriter) SetContext(prefixes map[string]string) {
	for k, v := range prefixes {
		w.doc.Context[k] = v
	}
}

// AddNode adds a node to the graph.
func (w *JSONLDWriter) AddNode(id string, types []string, properties map[string]any) {
	w.doc.Graph = append(w.doc.Graph, JSONLDNode{
		ID:         id,
		Type:       types,
		Properties: properties,
	})
}

// Marshal returns the indented JSON-LD output.
func (w *JSONLDWriter) Marshal() (string, error) {
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json-ld: %w", err)
	}
	return string(data), nil
}

// jsonldName renders an IRI or blank node as a compact IRI string.
func jsonldName(t graph.Term) string {
	if iri, ok := t.(graph.IRI); ok {
		return vocabulary.Compact(string(iri))
	}
	return t.NTriples()
}

// jsonldValue renders an object as a JSON-LD value.
func jsonldValue(t graph.Term) any {
	lit, ok := t.(graph.Literal)
	if !ok {
		return map[string]string{"@id": jsonldName(t)}
	}
	switch {
	case lit.Lang != "":
		return map[string]string{"@value": lit.Value, "@language": lit.Lang}
	case lit.Datatype == "" || lit.Datatype == xsd.String:
		return lit.Value
	default:
		return map[string]string{"@value": lit.Value, "@type": vocabulary.Compact(string(lit.Datatype))}
	}
}
