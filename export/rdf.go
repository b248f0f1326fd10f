// Package export serializes entity graphs as Turtle, N-Triples and JSON-LD.
package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// RDFExporter collects triples and serializes them. Subjects keep the order
// in which they were first added.
type RDFExporter struct {
	g        *graph.Graph
	prefixes []vocabulary.Binding
}

// NewRDFExporter creates an exporter using the known vocabulary prefixes.
func NewRDFExporter() *RDFExporter {
	return &RDFExporter{
		g:        graph.New(),
		prefixes: vocabulary.Prefixes,
	}
}

// AddGraph adds every triple of g.
func (e *RDFExporter) AddGraph(g *graph.Graph) {
	e.g.Merge(g)
}

// AddTriples adds triples.
func (e *RDFExporter) AddTriples(triples ...graph.Triple) {
	e.g.AddAll(triples)
}

// Len returns the number of collected triples.
func (e *RDFExporter) Len() int {
	return e.g.Len()
}

// Export serializes all collected triples to the specified format.
func (e *RDFExporter) Export(format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(), nil
	case FormatNTriples:
		return e.toNTriples(), nil
	case FormatJSONLD:
		return e.toJSONLD()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// subjects returns the distinct subjects in insertion order.
func (e *RDFExporter) subjects() []graph.Term {
	var out []graph.Term
	seen := make(map[graph.Term]bool)
	for _, t := range e.g.Triples() {
		if !seen[t.Subject] {
			seen[t.Subject] = true
			out = append(out, t.Subject)
		}
	}
	return out
}

// predicateGroup is the objects of one predicate of one subject.
type predicateGroup struct {
	predicate graph.IRI
	objects   []graph.Term
}

// describe groups the triples of subject by predicate, rdf:type first.
func (e *RDFExporter) describe(subject graph.Term) []predicateGroup {
	var groups []predicateGroup
	index := make(map[graph.IRI]int)
	if types := e.g.Objects(subject, graph.RDFType); len(types) > 0 {
		index[graph.RDFType] = 0
		groups = append(groups, predicateGroup{predicate: graph.RDFType, objects: types})
	}
	for _, t := range e.g.Match(subject, "", nil) {
		if t.Predicate == graph.RDFType {
			continue
		}
		i, ok := index[t.Predicate]
		if !ok {
			i = len(groups)
			index[t.Predicate] = i
			groups = append(groups, predicateGroup{predicate: t.Predicate})
		}
		groups[i].objects = append(groups[i].objects, t.Object)
	}
	return groups
}

// usedPrefixes returns the bindings needed to compact the collected IRIs,
// in declaration order.
func (e *RDFExporter) usedPrefixes() []vocabulary.Binding {
	used := make(map[string]bool)
	mark := func(iri graph.IRI) {
		if name := vocabulary.Compact(string(iri)); name != string(iri) {
			used[name[:strings.Index(name, ":")]] = true
		}
	}
	for _, t := range e.g.Triples() {
		for _, term := range []graph.Term{t.Subject, t.Predicate, t.Object} {
			switch v := term.(type) {
			case graph.IRI:
				mark(v)
			case graph.Literal:
				if v.Lang == "" && v.Datatype != xsd.String {
					mark(v.Datatype)
				}
			}
		}
	}

	var out []vocabulary.Binding
	for _, b := range e.prefixes {
		if used[b.Prefix] {
			out = append(out, b)
		}
	}
	return out
}

// toTurtle serializes to Turtle format.
func (e *RDFExporter) toTurtle() string {
	w := NewTurtleWriter()
	for _, b := range e.usedPrefixes() {
		w.SetPrefix(b.Prefix, b.Namespace)
	}
	w.WritePrefixes()

	for i, subject := range e.subjects() {
		if i > 0 {
			w.WriteBlank()
		}
		w.WriteSubject(subject)
		groups := e.describe(subject)
		for j, group := range groups {
			w.WritePredicate(group.predicate, group.objects, j == len(groups)-1)
		}
	}
	return w.String()
}

// toNTriples serializes to N-Triples format.
func (e *RDFExporter) toNTriples() string {
	w := NewNTriplesWriter()
	for _, t := range e.g.Triples() {
		w.WriteTriple(t)
	}
	return w.String()
}

// toJSONLD serializes to JSON-LD format.
func (e *RDFExporter) toJSONLD() (string, error) {
	w := NewJSONLDWriter()
	prefixes := make(map[string]string)
	for _, b := range e.usedPrefixes() {
		prefixes[b.Prefix] = b.Namespace
	}
	w.SetContext(prefixes)

	for _, subject := range e.subjects() {
		var types []string
		props := make(map[string]any)
		for _, group := range e.describe(subject) {
			if group.predicate == graph.RDFType {
				for _, o := range group.objects {
					types = append(types, jsonldName(o))
				}
				continue
			}
			values := make([]any, 0, len(group.objects))
			for _, o := range group.objects {
				values = append(values, jsonldValue(o))
			}
			props[vocabulary.Compact(string(group.predicate))] = values
		}
		w.AddNode(jsonldName(subject), types, props)
	}
	return w.Marshal()
}
