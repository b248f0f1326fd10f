// Package shacl resolves SHACL shapes into form field trees and validates
// proposed triples against the constraints those shapes declare.
//
// The shapes graph is read as plain data: shapes are discovered by walking
// sh:targetClass, sh:property, sh:node and sh:or links, so no SPARQL engine
// is involved.
package shacl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/heritrace/graph"
	sh "github.com/c360studio/heritrace/vocabulary/shacl"
)

// ErrInvalidShape is returned when a shape carries a malformed constraint
// value, such as a non-numeric sh:maxCount or an uncompilable sh:pattern.
var ErrInvalidShape = errors.New("invalid shape")

// Condition is a [sh:path P; sh:hasValue V] pair. The subject must carry the
// triple (subject, P, V) for the sibling sh:pattern to be enforced.
type Condition struct {
	Path     graph.IRI
	HasValue graph.Term
}

// Alternative is one branch of an sh:or list.
type Alternative struct {
	Datatype graph.IRI
	Class    graph.IRI
	Node     graph.Term
	HasValue graph.Term
}

// PropertyShape holds the constraints attached to one sh:property.
type PropertyShape struct {
	ID          graph.Term
	Path        graph.IRI
	Name        string
	Description string
	Order       *float64

	Datatypes []graph.IRI
	Classes   []graph.IRI
	Node      graph.Term
	HasValue  graph.Term
	MinCount  int
	MaxCount  *int
	In        []graph.Term

	Pattern    string
	Flags      string
	Conditions []Condition
	Or         []Alternative

	// messages holds sh:message values keyed by language tag; "" is untagged.
	messages map[string]string
	pattern  *regexp.Regexp
}

// Message returns the sh:message for lang, falling back to the untagged
// message, then English, then any message.
func (p *PropertyShape) Message(lang string) string {
	if len(p.messages) == 0 {
		return ""
	}
	for _, l := range []string{strings.ToLower(lang), "", "en"} {
		if m, ok := p.messages[l]; ok {
			return m
		}
	}
	// Deterministic pick among the remaining languages.
	var best string
	for l := range p.messages {
		if best == "" || l < best {
			best = l
		}
	}
	return p.messages[best]
}

// Matches reports whether value satisfies the sh:pattern. Shapes without a
// pattern match everything.
func (p *PropertyShape) Matches(value string) bool {
	return p.pattern == nil || p.pattern.MatchString(value)
}

// NodeShape is a shape with target classes and property shapes.
type NodeShape struct {
	ID            graph.Term
	TargetClasses []graph.IRI
	Properties    []*PropertyShape
}

// Shapes is a parsed shapes graph.
type Shapes struct {
	graph   *graph.Graph
	order   []*NodeShape
	byID    map[graph.Term]*NodeShape
	byClass map[graph.IRI][]*NodeShape
}

// ParseShapes reads every node shape from a shapes graph. Node shapes are the
// subjects typed sh:NodeShape, the subjects of sh:targetClass or sh:property,
// and every shape referenced through sh:node.
func ParseShapes(g *graph.Graph) (*Shapes, error) {
	s := &Shapes{
		graph:   g,
		byID:    make(map[graph.Term]*NodeShape),
		byClass: make(map[graph.IRI][]*NodeShape),
	}

	var ids []graph.Term
	seen := make(map[graph.Term]bool)
	collect := func(ts []graph.Term) {
		for _, t := range ts {
			if t == nil || t.Kind() == graph.KindLiteral || seen[t] {
				continue
			}
			seen[t] = true
			ids = append(ids, t)
		}
	}
	collect(g.Subjects(graph.RDFType, graph.IRI(sh.NodeShape)))
	collect(g.Subjects(sh.TargetClass, nil))
	for _, t := range g.Match(nil, sh.Property, nil) {
		collect([]graph.Term{t.Subject})
	}
	for _, t := range g.Match(nil, sh.Node, nil) {
		collect([]graph.Term{t.Object})
	}

	for _, id := range ids {
		ns, err := s.parseNodeShape(id)
		if err != nil {
			return nil, err
		}
		s.order = append(s.order, ns)
		s.byID[id] = ns
		for _, class := range ns.TargetClasses {
			s.byClass[class] = append(s.byClass[class], ns)
		}
	}
	return s, nil
}

// Graph returns the underlying shapes graph.
func (s *Shapes) Graph() *graph.Graph {
	if s == nil {
		return nil
	}
	return s.graph
}

// All returns the node shapes in shapes-graph order.
func (s *Shapes) All() []*NodeShape {
	if s == nil {
		return nil
	}
	return s.order
}

// Shape returns the node shape with the given identifier, or nil.
func (s *Shapes) Shape(id graph.Term) *NodeShape {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// ForClass returns the node shapes targeting class, in shapes-graph order.
func (s *Shapes) ForClass(class graph.IRI) []*NodeShape {
	if s == nil {
		return nil
	}
	return s.byClass[class]
}

// Classes returns every target class in shapes-graph order.
func (s *Shapes) Classes() []graph.IRI {
	if s == nil {
		return nil
	}
	var out []graph.IRI
	seen := make(map[graph.IRI]bool)
	for _, ns := range s.order {
		for _, c := range ns.TargetClasses {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (s *Shapes) parseNodeShape(id graph.Term) (*NodeShape, error) {
	ns := &NodeShape{ID: id, TargetClasses: iris(s.graph.Objects(id, sh.TargetClass))}
	for _, p := range s.graph.Objects(id, sh.Property) {
		ps, err := s.parsePropertyShape(p)
		if err != nil {
			return nil, fmt.Errorf("shape %s: %w", id, err)
		}
		if ps != nil {
			ns.Properties = append(ns.Properties, ps)
		}
	}
	return ns, nil
}

// parsePropertyShape returns nil for property shapes whose sh:path is not a
// plain predicate; complex paths are not editable through forms.
func (s *Shapes) parsePropertyShape(id graph.Term) (*PropertyShape, error) {
	g := s.graph
	path, ok := g.Object(id, sh.Path).(graph.IRI)
	if !ok {
		return nil, nil
	}

	ps := &PropertyShape{
		ID:          id,
		Path:        path,
		Name:        literalValue(g.Object(id, sh.Name)),
		Description: literalValue(g.Object(id, sh.Description)),
		Datatypes:   iris(g.Objects(id, sh.Datatype)),
		Classes:     iris(g.Objects(id, sh.Class)),
		Node:        g.Object(id, sh.Node),
		HasValue:    g.Object(id, sh.HasValue),
		Flags:       literalValue(g.Object(id, sh.Flags)),
	}

	if head := g.Object(id, sh.ClassIn); head != nil {
		ps.Classes = appendUnique(ps.Classes, iris(g.List(head))...)
	}
	if head := g.Object(id, sh.In); head != nil {
		ps.In = g.List(head)
	}

	var err error
	if ps.MinCount, err = countValue(g.Object(id, sh.MinCount), 0); err != nil {
		return nil, fmt.Errorf("%w: %s sh:minCount: %v", ErrInvalidShape, path, err)
	}
	if maxTerm := g.Object(id, sh.MaxCount); maxTerm != nil {
		n, err := countValue(maxTerm, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %s sh:maxCount: %v", ErrInvalidShape, path, err)
		}
		ps.MaxCount = &n
	}
	if o := g.Object(id, sh.Order); o != nil {
		f, err := strconv.ParseFloat(o.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s sh:order: %v", ErrInvalidShape, path, err)
		}
		ps.Order = &f
	}

	if pat := g.Object(id, sh.Pattern); pat != nil {
		ps.Pattern = pat.String()
		expr := ps.Pattern
		if strings.Contains(ps.Flags, "i") {
			expr = "(?i)" + expr
		}
		if ps.pattern, err = regexp.Compile(expr); err != nil {
			return nil, fmt.Errorf("%w: %s sh:pattern: %v", ErrInvalidShape, path, err)
		}
	}
	for _, m := range g.Objects(id, sh.Message) {
		if lit, ok := m.(graph.Literal); ok {
			if ps.messages == nil {
				ps.messages = make(map[string]string)
			}
			if _, dup := ps.messages[lit.Lang]; !dup {
				ps.messages[lit.Lang] = lit.Value
			}
		}
	}

	for _, c := range g.Objects(id, sh.Condition) {
		cpath, ok := g.Object(c, sh.Path).(graph.IRI)
		value := g.Object(c, sh.HasValue)
		if !ok || value == nil {
			return nil, fmt.Errorf("%w: %s sh:condition needs sh:path and sh:hasValue", ErrInvalidShape, path)
		}
		ps.Conditions = append(ps.Conditions, Condition{Path: cpath, HasValue: value})
	}

	if head := g.Object(id, sh.Or); head != nil {
		for _, branch := range g.List(head) {
			alt := Alternative{
				Node:     g.Object(branch, sh.Node),
				HasValue: g.Object(branch, sh.HasValue),
			}
			alt.Datatype, _ = g.Object(branch, sh.Datatype).(graph.IRI)
			alt.Class, _ = g.Object(branch, sh.Class).(graph.IRI)
			ps.Or = append(ps.Or, alt)
		}
	}
	return ps, nil
}

// AllDatatypes returns sh:datatype followed by the datatypes of sh:or
// branches, without duplicates.
func (p *PropertyShape) AllDatatypes() []graph.IRI {
	out := appendUnique(nil, p.Datatypes...)
	for _, alt := range p.Or {
		if alt.Datatype != "" {
			out = appendUnique(out, alt.Datatype)
		}
	}
	return out
}

// AllClasses returns sh:class, sh:classIn and the classes of sh:or branches.
func (p *PropertyShape) AllClasses() []graph.IRI {
	out := appendUnique(nil, p.Classes...)
	for _, alt := range p.Or {
		if alt.Class != "" {
			out = appendUnique(out, alt.Class)
		}
	}
	return out
}

// Nodes returns sh:node followed by the nodes of sh:or branches.
func (p *PropertyShape) Nodes() []graph.Term {
	var out []graph.Term
	if p.Node != nil {
		out = append(out, p.Node)
	}
	for _, alt := range p.Or {
		if alt.Node != nil {
			out = append(out, alt.Node)
		}
	}
	return out
}

func countValue(t graph.Term, def int) (int, error) {
	if t == nil {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(t.String()))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func literalValue(t graph.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func iris(ts []graph.Term) []graph.IRI {
	var out []graph.IRI
	for _, t := range ts {
		if iri, ok := t.(graph.IRI); ok {
			out = append(out, iri)
		}
	}
	return out
}

func appendUnique(dst []graph.IRI, items ...graph.IRI) []graph.IRI {
	for _, item := range items {
		dup := false
		for _, d := range dst {
			if d == item {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}
