package shacl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/message"

	"github.com/c360studio/heritrace/datatype"
	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// ErrInvalidRequest is returned for requests that cannot be validated at all,
// such as a missing subject or an unknown action.
var ErrInvalidRequest = errors.New("invalid validation request")

// Action is the kind of edit being validated.
type Action string

// Supported actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction parses an action name. An empty name is a create.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ActionCreate, nil
	case ActionCreate, ActionUpdate, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, s)
	}
}

// Request describes one proposed triple edit.
type Request struct {
	Subject   graph.Term
	Predicate graph.IRI
	Value     string
	Action    Action

	// OldValue is the value being replaced or deleted, if any.
	OldValue graph.Term

	// EntityTypes supplies the types of an entity that is not persisted yet.
	EntityTypes []graph.IRI

	// Language selects the message catalog; empty uses the resolver default.
	Language string

	// DeferCardinality skips the count bounds for values staged into a new
	// entity whose assembled graph is checked with ValidateGraph.
	DeferCardinality bool
}

// Result is the outcome of ValidateNewTriple. Error is empty on success, in
// which case Value holds the coerced term (nil for deletes).
type Result struct {
	Value    graph.Term
	Previous graph.Term
	Error    string
}

// OK reports whether the edit was accepted.
func (r Result) OK() bool {
	return r.Error == ""
}

// constraints is the union of the property shapes matching one predicate.
type constraints struct {
	props     []*PropertyShape
	minCount  int
	maxCount  *int
	in        []graph.Term
	classes   []graph.IRI
	datatypes []graph.IRI
}

// ValidateNewTriple checks a proposed edit against the property shapes of
// the subject's types and, for dependent entities, of the shapes that
// reference them. Constraint violations are reported in Result.Error; the
// returned error is reserved for malformed requests and data-source
// failures.
func (r *Resolver) ValidateNewTriple(ctx context.Context, req Request) (Result, error) {
	if req.Subject == nil || req.Predicate == "" {
		return Result{}, fmt.Errorf("%w: subject and predicate are required", ErrInvalidRequest)
	}
	if req.Action == "" {
		req.Action = ActionCreate
	}
	if _, err := ParseAction(string(req.Action)); err != nil {
		return Result{}, err
	}
	if req.Action == ActionDelete && req.OldValue == nil {
		return Result{}, fmt.Errorf("%w: delete requires the old value", ErrInvalidRequest)
	}

	p := printer(MatchLanguage(req.Language, r.language))

	current, err := r.subjectTriples(ctx, req.Subject)
	if err != nil {
		return Result{}, err
	}
	req.OldValue = storedValue(current, req.Subject, req.Predicate, req.OldValue)
	res := Result{Previous: req.OldValue}
	if r.shapes == nil {
		if req.Action != ActionDelete {
			res.Value = fallbackValue(req.Value, req.OldValue)
		}
		return res, nil
	}

	types := typesOf(req.Subject, current, req.EntityTypes)
	inverse, err := r.inverseTypes(ctx, req.Subject)
	if err != nil {
		return Result{}, err
	}
	c := r.gather(types, inverse, req.Predicate)
	if len(c.props) == 0 {
		r.logger.Debug("No property shape for predicate",
			"subject", req.Subject.String(),
			"predicate", string(req.Predicate))
		if req.Action != ActionDelete {
			res.Value = fallbackValue(req.Value, req.OldValue)
		}
		return res, nil
	}
	label := r.propertyLabel(types, c.props, req.Predicate)

	if !req.DeferCardinality {
		if msg := cardinality(p, c, current, req, label); msg != "" {
			res.Error = msg
			return res, nil
		}
	}
	if req.Action == ActionDelete {
		return res, nil
	}

	if len(c.in) > 0 {
		for _, allowed := range c.in {
			if allowed.String() == req.Value {
				res.Value = allowed
				return res, nil
			}
		}
		res.Error = p.Sprintf(msgNotAllowed, quote(req.Value), label, joinTerms(c.in))
		return res, nil
	}

	if msg := r.checkPatterns(p, req.Subject, current, c.props, req.Value, label, req.Language); msg != "" {
		res.Error = msg
		return res, nil
	}

	if len(c.classes) > 0 {
		value, msg, err := r.checkClass(ctx, p, req.Value, label, c.classes, nil)
		if err != nil {
			return Result{}, err
		}
		if msg != "" {
			res.Error = msg
			return res, nil
		}
		res.Value = value
		return res, nil
	}

	if len(c.datatypes) > 0 {
		lit, ok := datatype.Convert(req.Value, c.datatypes...)
		if !ok {
			res.Error = p.Sprintf(msgDatatype, quote(req.Value), label, joinIRIs(c.datatypes))
			return res, nil
		}
		res.Value = lit
		return res, nil
	}

	res.Value = fallbackValue(req.Value, req.OldValue)
	return res, nil
}

// cardinality checks both bounds against the number of values the edit
// leaves: one more for a create, one fewer for a delete, the same for an
// update.
func cardinality(p *message.Printer, c constraints, current []graph.Triple, req Request, label string) string {
	next := 0
	for _, t := range current {
		if t.Subject == req.Subject && t.Predicate == req.Predicate {
			next++
		}
	}
	switch req.Action {
	case ActionCreate:
		next++
	case ActionDelete:
		next--
	}
	if c.maxCount != nil && next > *c.maxCount {
		return p.Sprintf(msgMaxCount, label, *c.maxCount)
	}
	if next < c.minCount {
		return p.Sprintf(msgMinCount, label, c.minCount)
	}
	return ""
}

// gather collects the property shapes for predicate on the shapes of the
// subject's types, plus the node shapes that the shapes of the inverse types
// point to through sh:node, restricted to those compatible with the subject.
func (r *Resolver) gather(types, inverse []graph.IRI, predicate graph.IRI) constraints {
	var shapes []*NodeShape
	seen := make(map[*NodeShape]bool)
	add := func(ns *NodeShape) {
		if ns != nil && !seen[ns] {
			seen[ns] = true
			shapes = append(shapes, ns)
		}
	}
	for _, class := range types {
		for _, ns := range r.shapes.ForClass(class) {
			add(ns)
		}
	}
	for _, class := range inverse {
		for _, owner := range r.shapes.ForClass(class) {
			for _, ps := range owner.Properties {
				for _, node := range ps.Nodes() {
					nested := r.shapes.Shape(node)
					if nested != nil && compatible(nested, types) {
						add(nested)
					}
				}
			}
		}
	}

	var props []*PropertyShape
	for _, ns := range shapes {
		for _, ps := range ns.Properties {
			if ps.Path == predicate {
				props = append(props, ps)
			}
		}
	}
	return combine(props)
}

// combine merges property shapes sharing a path. The combined bounds are the
// loosest of the shapes; value constraints are unioned.
func combine(props []*PropertyShape) constraints {
	c := constraints{props: props}
	unbounded := false
	for i, ps := range props {
		if i == 0 || ps.MinCount < c.minCount {
			c.minCount = ps.MinCount
		}
		switch {
		case ps.MaxCount == nil:
			unbounded = true
		case c.maxCount == nil || *ps.MaxCount > *c.maxCount:
			c.maxCount = ps.MaxCount
		}

		c.in = appendTerms(c.in, ps.In...)
		c.classes = appendUnique(c.classes, ps.AllClasses()...)
		c.datatypes = appendUnique(c.datatypes, ps.AllDatatypes()...)
	}
	if unbounded {
		c.maxCount = nil
	}
	return c
}

// compatible reports whether a nested shape applies to an entity with the
// given types. Shapes without a target class apply to every entity, and
// untyped entities accept every shape their owner points to.
func compatible(ns *NodeShape, types []graph.IRI) bool {
	if len(ns.TargetClasses) == 0 || len(types) == 0 {
		return true
	}
	for _, tc := range ns.TargetClasses {
		for _, t := range types {
			if tc == t {
				return true
			}
		}
	}
	return false
}

// checkPatterns enforces every sh:pattern whose sh:condition triples all hold
// on the subject. It returns the message of the first failing pattern.
func (r *Resolver) checkPatterns(p *message.Printer, subject graph.Term, current []graph.Triple, props []*PropertyShape, value, label, lang string) string {
	have := make(map[graph.Triple]bool, len(current))
	for _, t := range current {
		have[t] = true
	}
	for _, ps := range props {
		if ps.Pattern == "" {
			continue
		}
		applies := true
		for _, cond := range ps.Conditions {
			if !have[graph.Triple{Subject: subject, Predicate: cond.Path, Object: cond.HasValue}] {
				applies = false
				break
			}
		}
		if !applies || ps.Matches(value) {
			continue
		}
		if msg := ps.Message(MatchLanguage(lang, r.language).String()); msg != "" {
			return msg
		}
		return p.Sprintf(msgPattern, quote(value), label, ps.Pattern)
	}
	return ""
}

// checkClass requires value to be a resource typed with one of classes.
// local supplies types of entities not yet persisted.
func (r *Resolver) checkClass(ctx context.Context, p *message.Printer, value, label string, classes []graph.IRI, local *graph.Graph) (graph.Term, string, error) {
	if !graph.LooksLikeIRI(value) {
		return nil, p.Sprintf(msgNotResource, quote(value), label), nil
	}
	iri := graph.IRI(value)

	var types []graph.IRI
	if local != nil {
		types = local.Types(iri)
	}
	if len(types) == 0 && r.source != nil {
		var err error
		if types, err = r.source.Types(ctx, iri); err != nil {
			return nil, "", fmt.Errorf("types of %s: %w", iri, err)
		}
	}
	for _, t := range types {
		for _, c := range classes {
			if t == c {
				return iri, "", nil
			}
		}
	}

	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, r.ClassLabel(c))
	}
	return nil, p.Sprintf(msgWrongClass, value, strings.Join(names, ", ")), nil
}

func (r *Resolver) subjectTriples(ctx context.Context, subject graph.Term) ([]graph.Triple, error) {
	if r.source == nil {
		return nil, nil
	}
	triples, err := r.source.Triples(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("triples of %s: %w", subject, err)
	}
	return triples, nil
}

func (r *Resolver) inverseTypes(ctx context.Context, subject graph.Term) ([]graph.IRI, error) {
	if r.source == nil {
		return nil, nil
	}
	types, err := r.source.InverseTypes(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("inverse types of %s: %w", subject, err)
	}
	return types, nil
}

// typesOf merges the persisted rdf:type values with the supplied ones.
func typesOf(subject graph.Term, current []graph.Triple, supplied []graph.IRI) []graph.IRI {
	var types []graph.IRI
	for _, t := range current {
		if t.Subject != subject || t.Predicate != graph.RDFType {
			continue
		}
		if iri, ok := t.Object.(graph.IRI); ok {
			types = appendUnique(types, iri)
		}
	}
	return appendUnique(types, supplied...)
}

// storedValue resolves an old value given as a plain string to the stored
// object of (subject, predicate) with the same lexical form, so that its
// language and datatype survive the edit. Exact matches and unmatched values
// are returned unchanged.
func storedValue(current []graph.Triple, subject graph.Term, predicate graph.IRI, old graph.Term) graph.Term {
	lit, ok := old.(graph.Literal)
	if !ok || lit.Lang != "" || lit.Datatype != xsd.String {
		return old
	}
	var match graph.Term
	for _, t := range current {
		if t.Subject != subject || t.Predicate != predicate {
			continue
		}
		if t.Object == old {
			return old
		}
		if stored, ok := t.Object.(graph.Literal); ok && match == nil && stored.Value == lit.Value {
			match = stored
		}
	}
	if match == nil {
		return old
	}
	return match
}

// fallbackValue coerces a value with no applicable constraint. An old literal
// lends its language or datatype; a datatype that rejects the new value is
// replaced by an inferred one. Without an old value the result is an IRI
// when the value looks like one and a plain string otherwise.
func fallbackValue(value string, old graph.Term) graph.Term {
	if lit, ok := old.(graph.Literal); ok {
		if lit.Lang != "" {
			return graph.NewLangLiteral(value, lit.Lang)
		}
		if converted, ok := datatype.Validate(value, lit.Datatype); ok {
			return converted
		}
		return graph.NewTypedLiteral(value, datatype.Infer(value))
	}
	if graph.LooksLikeIRI(value) {
		return graph.IRI(value)
	}
	return graph.NewTypedLiteral(value, xsd.String)
}

func appendTerms(dst []graph.Term, items ...graph.Term) []graph.Term {
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

func quote(s string) string {
	return `"` + s + `"`
}

func joinTerms(ts []graph.Term) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		if iri, ok := t.(graph.IRI); ok {
			parts = append(parts, vocabulary.Compact(string(iri)))
			continue
		}
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

func joinIRIs(iris []graph.IRI) string {
	parts := make([]string, 0, len(iris))
	for _, iri := range iris {
		parts = append(parts, vocabulary.Compact(string(iri)))
	}
	return strings.Join(parts, ", ")
}
