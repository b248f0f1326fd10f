package shacl

import (
	"context"

	"golang.org/x/text/message"

	"github.com/c360studio/heritrace/datatype"
	"github.com/c360studio/heritrace/graph"
)

// Violation is one constraint failure found by ValidateEntity.
type Violation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Value     string `json:"value,omitempty"`
	Message   string `json:"message"`
}

// ValidateEntity checks a persisted entity against every property shape of
// its types.
func (r *Resolver) ValidateEntity(ctx context.Context, subject graph.Term, lang string) ([]Violation, error) {
	triples, err := r.subjectTriples(ctx, subject)
	if err != nil {
		return nil, err
	}
	return r.ValidateGraph(ctx, graph.FromTriples(triples), subject, lang)
}

// ValidateGraph checks subject as described by g, typically an entity that is
// about to be created. Linked resources are typed from g first and from the
// data source otherwise.
func (r *Resolver) ValidateGraph(ctx context.Context, g *graph.Graph, subject graph.Term, lang string) ([]Violation, error) {
	if r.shapes == nil {
		return nil, nil
	}
	p := printer(MatchLanguage(lang, r.language))
	types := g.Types(subject)
	current := g.Match(subject, "", nil)

	var out []Violation
	seen := make(map[Violation]bool)
	report := func(v Violation) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, class := range types {
		for _, ns := range r.shapes.ForClass(class) {
			for _, group := range groupByPath(ns.Properties) {
				predicate := group[0].Path
				c := combine(group)
				label := r.propertyLabel(types, group, predicate)
				values := g.Objects(subject, predicate)

				if len(values) < c.minCount {
					report(Violation{
						Subject:   subject.String(),
						Predicate: string(predicate),
						Message:   p.Sprintf(msgMinCount, label, c.minCount),
					})
				}
				if c.maxCount != nil && len(values) > *c.maxCount {
					report(Violation{
						Subject:   subject.String(),
						Predicate: string(predicate),
						Message:   p.Sprintf(msgMaxCount, label, *c.maxCount),
					})
				}

				for _, v := range values {
					msg, err := r.checkValue(ctx, p, g, subject, current, c, v, label, lang)
					if err != nil {
						return nil, err
					}
					if msg != "" {
						report(Violation{
							Subject:   subject.String(),
							Predicate: string(predicate),
							Value:     v.String(),
							Message:   msg,
						})
					}
				}
			}
		}
	}
	return out, nil
}

// checkValue applies the value constraints of c to one stored object.
func (r *Resolver) checkValue(ctx context.Context, p *message.Printer, g *graph.Graph, subject graph.Term, current []graph.Triple, c constraints, v graph.Term, label, lang string) (string, error) {
	if len(c.in) > 0 {
		for _, allowed := range c.in {
			if allowed == v {
				return "", nil
			}
		}
		return p.Sprintf(msgNotAllowed, quote(v.String()), label, joinTerms(c.in)), nil
	}

	if msg := r.checkPatterns(p, subject, current, c.props, v.String(), label, lang); msg != "" {
		return msg, nil
	}

	if len(c.classes) > 0 {
		_, msg, err := r.checkClass(ctx, p, v.String(), label, c.classes, g)
		return msg, err
	}

	if len(c.datatypes) > 0 {
		lit, ok := v.(graph.Literal)
		if !ok {
			return p.Sprintf(msgUnknownValue, quote(v.String()), label), nil
		}
		for _, dt := range c.datatypes {
			if lit.Datatype != dt {
				continue
			}
			if _, ok := datatype.Validate(lit.Value, dt); ok {
				return "", nil
			}
		}
		return p.Sprintf(msgDatatype, quote(lit.Value), label, joinIRIs(c.datatypes)), nil
	}
	return "", nil
}

// groupByPath groups property shapes sharing a path, in first-seen order.
func groupByPath(props []*PropertyShape) [][]*PropertyShape {
	var groups [][]*PropertyShape
	index := make(map[graph.IRI]int)
	for _, ps := range props {
		i, ok := index[ps.Path]
		if !ok {
			i = len(groups)
			index[ps.Path] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], ps)
	}
	return groups
}
