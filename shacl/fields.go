package shacl

import (
	"math"
	"sort"

	"github.com/c360studio/heritrace/display"
	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
)

// FieldCondition is one [sh:path; sh:hasValue] pair guarding a field's
// pattern.
type FieldCondition struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// FieldDescriptor is one form field derived from a property shape.
type FieldDescriptor struct {
	EntityType     string           `json:"entity_type"`
	Predicate      string           `json:"predicate"`
	NodeShape      string           `json:"node_shape,omitempty"`
	SubjectShape   string           `json:"subject_shape"`
	Datatypes      []string         `json:"datatypes,omitempty"`
	MinCount       int              `json:"min_count"`
	MaxCount       *int             `json:"max_count,omitempty"`
	HasValue       string           `json:"has_value,omitempty"`
	ObjectClass    string           `json:"object_class,omitempty"`
	OptionalValues []string         `json:"optional_values,omitempty"`
	Conditions     []FieldCondition `json:"conditions,omitempty"`
	Pattern        string           `json:"pattern,omitempty"`
	Message        string           `json:"message,omitempty"`
	Order          *float64         `json:"order,omitempty"`

	OrAlternatives []FieldDescriptor `json:"or_alternatives,omitempty"`
	NestedFields   []FieldDescriptor `json:"nested_fields,omitempty"`

	// Reference names the node shape whose expansion was cut short because
	// it was already being expanded or the depth limit was reached.
	Reference string `json:"reference,omitempty"`

	DisplayName          string `json:"display_name,omitempty"`
	NodeShapeDisplayName string `json:"node_shape_display_name,omitempty"`
	OrderedBy            string `json:"ordered_by,omitempty"`
	InputType            string `json:"input_type,omitempty"`
	ShouldBeDisplayed    bool   `json:"should_be_displayed"`
}

// PropertyFields groups the fields emitted for one predicate. A predicate has
// several fields when differently shaped objects share it.
type PropertyFields struct {
	Predicate string            `json:"predicate"`
	Fields    []FieldDescriptor `json:"fields"`
}

// EntityForm is the field tree of one (entity type, subject shape) pair.
type EntityForm struct {
	EntityType        string           `json:"entity_type"`
	SubjectShape      string           `json:"subject_shape"`
	DisplayName       string           `json:"display_name"`
	ShouldBeDisplayed bool             `json:"should_be_displayed"`
	Properties        []PropertyFields `json:"properties"`
}

// Property returns the fields of a predicate.
func (f *EntityForm) Property(predicate string) ([]FieldDescriptor, bool) {
	for _, p := range f.Properties {
		if p.Predicate == predicate {
			return p.Fields, true
		}
	}
	return nil, false
}

// Forms is the ordered result of FormFields.
type Forms []EntityForm

// Lookup returns the form for an entity type and subject shape. An empty
// shape selects the first form of the type.
func (fs Forms) Lookup(entityType, shape string) (*EntityForm, bool) {
	for i := range fs {
		if fs[i].EntityType != entityType {
			continue
		}
		if shape == "" || fs[i].SubjectShape == shape {
			return &fs[i], true
		}
	}
	return nil, false
}

// FormFields returns the field tree of every (target class, node shape) pair
// in the shapes graph, in shapes-graph order.
func (r *Resolver) FormFields() Forms {
	forms := Forms{}
	for _, ns := range r.shapes.All() {
		for _, class := range ns.TargetClasses {
			forms = append(forms, r.form(class, ns))
		}
	}
	return forms
}

// FormFieldsFor returns the field trees of the shapes targeting class.
func (r *Resolver) FormFieldsFor(class graph.IRI) Forms {
	forms := Forms{}
	for _, ns := range r.shapes.ForClass(class) {
		forms = append(forms, r.form(class, ns))
	}
	return forms
}

func (r *Resolver) form(class graph.IRI, ns *NodeShape) EntityForm {
	b := &formBuilder{
		resolver:   r,
		processing: map[graph.Term]bool{ns.ID: true},
	}
	fields := b.shapeFields(class, ns, 0)

	form := EntityForm{
		EntityType:        string(class),
		SubjectShape:      ns.ID.String(),
		DisplayName:       r.rules.ClassDisplayName(string(class), ns.ID.String()),
		ShouldBeDisplayed: r.rules.Visible(string(class), ns.ID.String()),
		Properties:        []PropertyFields{},
	}
	if form.DisplayName == "" {
		form.DisplayName = vocabulary.Compact(string(class))
	}
	for _, fd := range fields {
		n := len(form.Properties)
		if n > 0 && form.Properties[n-1].Predicate == fd.Predicate {
			form.Properties[n-1].Fields = append(form.Properties[n-1].Fields, fd)
			continue
		}
		form.Properties = append(form.Properties, PropertyFields{
			Predicate: fd.Predicate,
			Fields:    []FieldDescriptor{fd},
		})
	}
	return form
}

// formBuilder expands one form. processing holds the node shapes on the
// current expansion path.
type formBuilder struct {
	resolver   *Resolver
	processing map[graph.Term]bool
}

// shapeFields returns the fields of a node shape, sorted so that fields of
// one predicate are adjacent and predicates follow display order.
func (b *formBuilder) shapeFields(entityType graph.IRI, ns *NodeShape, depth int) []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(ns.Properties))
	for _, ps := range ns.Properties {
		fields = append(fields, b.field(entityType, ns, ps, depth))
	}
	return b.resolver.orderFields(entityType, ns.ID.String(), fields)
}

func (b *formBuilder) field(entityType graph.IRI, ns *NodeShape, ps *PropertyShape, depth int) FieldDescriptor {
	r := b.resolver
	fd := FieldDescriptor{
		EntityType:        string(entityType),
		Predicate:         string(ps.Path),
		SubjectShape:      ns.ID.String(),
		Datatypes:         iriStrings(ps.Datatypes),
		MinCount:          ps.MinCount,
		MaxCount:          ps.MaxCount,
		HasValue:          termString(ps.HasValue),
		OptionalValues:    termStrings(ps.In),
		Pattern:           ps.Pattern,
		Message:           ps.Message(MatchLanguage(r.language).String()),
		Order:             ps.Order,
		DisplayName:       ps.Name,
		ShouldBeDisplayed: true,
	}
	if len(ps.Classes) > 0 {
		fd.ObjectClass = string(ps.Classes[0])
	}
	for _, c := range ps.Conditions {
		fd.Conditions = append(fd.Conditions, FieldCondition{Path: string(c.Path), Value: c.HasValue.String()})
	}

	if ps.Node != nil {
		fd.NodeShape = ps.Node.String()
		fd.NestedFields, fd.Reference = b.expand(ps.Node, graph.IRI(fd.ObjectClass), depth+1)
	}

	for _, alt := range ps.Or {
		af := FieldDescriptor{
			EntityType:        fd.EntityType,
			Predicate:         fd.Predicate,
			SubjectShape:      fd.SubjectShape,
			MinCount:          fd.MinCount,
			MaxCount:          fd.MaxCount,
			HasValue:          termString(alt.HasValue),
			ObjectClass:       string(alt.Class),
			ShouldBeDisplayed: true,
		}
		if alt.Datatype != "" {
			af.Datatypes = []string{string(alt.Datatype)}
		}
		if alt.Node != nil {
			af.NodeShape = alt.Node.String()
			af.NestedFields, af.Reference = b.expand(alt.Node, alt.Class, depth+1)
		}
		fd.OrAlternatives = append(fd.OrAlternatives, af)
	}

	r.applyDisplay(&fd)
	return fd
}

// expand returns the fields of a nested node shape. When the shape is
// already on the expansion path or the depth limit is exceeded, it returns
// no fields and the shape identifier as a reference marker.
func (b *formBuilder) expand(node graph.Term, objectType graph.IRI, depth int) ([]FieldDescriptor, string) {
	if b.processing[node] || depth > b.resolver.maxDepth {
		return nil, node.String()
	}
	ns := b.resolver.shapes.Shape(node)
	if ns == nil {
		return nil, ""
	}
	if len(ns.TargetClasses) > 0 {
		objectType = ns.TargetClasses[0]
	}

	b.processing[node] = true
	defer delete(b.processing, node)
	return b.shapeFields(objectType, ns, depth), ""
}

// applyDisplay merges the matching display rule into a field and its
// sh:or alternatives.
func (r *Resolver) applyDisplay(fd *FieldDescriptor) {
	rule, ok := r.rules.Match(fd.EntityType, fd.SubjectShape)
	if !ok {
		r.nodeShapeLabels(fd, display.PropertyRule{})
		for i := range fd.OrAlternatives {
			r.nodeShapeLabels(&fd.OrAlternatives[i], display.PropertyRule{})
		}
		return
	}
	prop, ok := rule.Property(fd.Predicate)
	if !ok {
		prop = display.PropertyRule{}
	}

	if prop.DisplayName != "" {
		fd.DisplayName = prop.DisplayName
	}
	fd.ShouldBeDisplayed = prop.Visible()
	fd.InputType = prop.InputType
	fd.OrderedBy = prop.OrderedBy
	for i := range fd.OrAlternatives {
		alt := &fd.OrAlternatives[i]
		alt.DisplayName = fd.DisplayName
		alt.ShouldBeDisplayed = fd.ShouldBeDisplayed
		alt.InputType = fd.InputType
		alt.OrderedBy = fd.OrderedBy
		r.nodeShapeLabels(alt, prop)
	}
	r.nodeShapeLabels(fd, prop)
}

// nodeShapeLabels applies the per-sub-shape override for the field's node
// shape, then falls back to the class display name of the nested shape.
func (r *Resolver) nodeShapeLabels(fd *FieldDescriptor, prop display.PropertyRule) {
	if fd.NodeShape == "" {
		return
	}
	if sub, ok := prop.SubShape(fd.NodeShape); ok {
		if sub.DisplayName != "" {
			fd.DisplayName = sub.DisplayName
			fd.NodeShapeDisplayName = sub.DisplayName
		}
		if sub.ShouldBeDisplayed != nil {
			fd.ShouldBeDisplayed = *sub.ShouldBeDisplayed
		}
		if sub.OrderedBy != "" {
			fd.OrderedBy = sub.OrderedBy
		}
	}
	if fd.NodeShapeDisplayName == "" && fd.ObjectClass != "" {
		fd.NodeShapeDisplayName = r.rules.ClassDisplayName(fd.ObjectClass, fd.NodeShape)
	}
}

// orderFields sorts fields by predicate: predicates listed in the display
// rule come first in rule order, then by lowest sh:order, then by first
// appearance. Fields of one predicate keep their relative order.
func (r *Resolver) orderFields(entityType graph.IRI, shape string, fields []FieldDescriptor) []FieldDescriptor {
	type rank struct {
		rule  int
		order float64
		first int
	}
	ruleIndex := make(map[string]int)
	for i, p := range r.rules.PropertyOrder(string(entityType), shape) {
		if _, dup := ruleIndex[p]; !dup {
			ruleIndex[p] = i
		}
	}

	ranks := make(map[string]*rank)
	for i, fd := range fields {
		rk, ok := ranks[fd.Predicate]
		if !ok {
			rk = &rank{rule: math.MaxInt, order: math.Inf(1), first: i}
			if idx, listed := ruleIndex[fd.Predicate]; listed {
				rk.rule = idx
			}
			ranks[fd.Predicate] = rk
		}
		if fd.Order != nil && *fd.Order < rk.order {
			rk.order = *fd.Order
		}
	}

	sort.SliceStable(fields, func(i, j int) bool {
		a, b := ranks[fields[i].Predicate], ranks[fields[j].Predicate]
		if a.rule != b.rule {
			return a.rule < b.rule
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.first < b.first
	})
	return fields
}

func termString(t graph.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func termStrings(ts []graph.Term) []string {
	if len(ts) == 0 {
		return nil
	}
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.String())
	}
	return out
}

func iriStrings(iris []graph.IRI) []string {
	if len(iris) == 0 {
		return nil
	}
	out := make([]string, 0, len(iris))
	for _, iri := range iris {
		out = append(out, string(iri))
	}
	return out
}
