package shacl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/heritrace/display"
	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
)

// DefaultMaxDepth bounds nested shape expansion in FormFields.
const DefaultMaxDepth = 5

// Source is the entity data the validator reads. storage.EntityStore
// satisfies it.
type Source interface {
	// Triples returns the triples having subject as subject.
	Triples(ctx context.Context, subject graph.Term) ([]graph.Triple, error)

	// Types returns the rdf:type values of an entity.
	Types(ctx context.Context, subject graph.Term) ([]graph.IRI, error)

	// InverseTypes returns the types of the entities referencing subject.
	InverseTypes(ctx context.Context, subject graph.Term) ([]graph.IRI, error)
}

// Options configures a Resolver.
type Options struct {
	// MaxDepth bounds nested shape expansion. Zero means DefaultMaxDepth.
	MaxDepth int

	// Language is used when a request names none. Empty means English.
	Language string

	Logger *slog.Logger
}

// Resolver builds form field trees and validates triples from one shapes
// graph and one set of display rules. It is immutable once built and safe
// for concurrent use; the watch package swaps whole resolvers on reload.
type Resolver struct {
	shapes *Shapes
	rules  *display.Rules
	source Source

	maxDepth int
	language string
	logger   *slog.Logger
}

// NewResolver creates a resolver. shapes may be nil, in which case every
// well-formed value is accepted. rules and source may be nil.
func NewResolver(shapes *Shapes, rules *display.Rules, source Source, opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		shapes:   shapes,
		rules:    rules,
		source:   source,
		maxDepth: opts.MaxDepth,
		language: opts.Language,
		logger:   opts.Logger,
	}
}

// Load reads the shapes files (glob patterns) and the optional display rules
// file and returns a resolver over them.
func Load(shapePatterns []string, rulesPath string, source Source, opts Options) (*Resolver, error) {
	var shapes *Shapes
	if len(shapePatterns) > 0 {
		g, err := graph.LoadFiles(shapePatterns...)
		if err != nil {
			return nil, fmt.Errorf("load shapes: %w", err)
		}
		if shapes, err = ParseShapes(g); err != nil {
			return nil, fmt.Errorf("parse shapes: %w", err)
		}
	}

	var rules *display.Rules
	if rulesPath != "" {
		var err error
		if rules, err = display.Load(rulesPath); err != nil {
			return nil, err
		}
	}

	r := NewResolver(shapes, rules, source, opts)
	r.logger.Debug("Resolver loaded",
		"shapes", len(shapes.All()),
		"rules", ruleCount(rules),
		"max_depth", r.maxDepth)
	return r, nil
}

// Shapes returns the parsed shapes graph, or nil when none is configured.
func (r *Resolver) Shapes() *Shapes {
	return r.shapes
}

// Rules returns the display rules, possibly nil.
func (r *Resolver) Rules() *display.Rules {
	return r.rules
}

// WithSource returns a copy of the resolver reading entity data from source.
func (r *Resolver) WithSource(source Source) *Resolver {
	cp := *r
	cp.source = source
	return &cp
}

// ShapesFor returns the node shapes targeting class.
func (r *Resolver) ShapesFor(class graph.IRI) []*NodeShape {
	return r.shapes.ForClass(class)
}

// HighestPriorityClass picks the main type of a multi-typed entity: the class
// whose display rule has the lowest priority value. Classes without a rule
// rank after every class with one; ties keep input order. It returns "" for
// an empty list.
func (r *Resolver) HighestPriorityClass(types []graph.IRI) graph.IRI {
	var (
		best     graph.IRI
		bestPrio int
		bestRule bool
	)
	for _, class := range types {
		prio, ok := r.rules.ClassPriority(string(class), r.primaryShape(class))
		switch {
		case best == "":
		case ok && (!bestRule || prio < bestPrio):
		default:
			continue
		}
		best, bestPrio, bestRule = class, prio, ok
	}
	return best
}

// EntityTypes returns the rdf:type values of subject from the data source.
func (r *Resolver) EntityTypes(ctx context.Context, subject graph.Term) ([]graph.IRI, error) {
	if r.source == nil {
		return nil, nil
	}
	types, err := r.source.Types(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("entity types of %s: %w", subject, err)
	}
	return types, nil
}

// ClassLabel returns the display name of a class, or its prefixed name.
func (r *Resolver) ClassLabel(class graph.IRI) string {
	if name := r.rules.ClassDisplayName(string(class), r.primaryShape(class)); name != "" {
		return name
	}
	return vocabulary.Compact(string(class))
}

// propertyLabel names a predicate for messages: the display rule name for one
// of the types, then sh:name, then the prefixed name.
func (r *Resolver) propertyLabel(types []graph.IRI, props []*PropertyShape, predicate graph.IRI) string {
	for _, class := range types {
		for _, ns := range r.shapes.ForClass(class) {
			rule, ok := r.rules.Match(string(class), ns.ID.String())
			if !ok {
				continue
			}
			if p, ok := rule.Property(string(predicate)); ok && p.DisplayName != "" {
				return p.DisplayName
			}
		}
	}
	for _, p := range props {
		if p.Name != "" {
			return p.Name
		}
	}
	return vocabulary.Compact(string(predicate))
}

// primaryShape returns the first shape targeting class, as a string.
func (r *Resolver) primaryShape(class graph.IRI) string {
	shapes := r.shapes.ForClass(class)
	if len(shapes) == 0 {
		return ""
	}
	return shapes[0].ID.String()
}

func ruleCount(rules *display.Rules) int {
	if rules == nil {
		return 0
	}
	return len(rules.Rules)
}
