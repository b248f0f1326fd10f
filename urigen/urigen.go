// Package urigen mints IRIs for new entities.
package urigen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/storage"
	"github.com/c360studio/heritrace/vocabulary/heritrace"
)

// Generator mints a fresh IRI for an entity of the given class.
type Generator interface {
	Generate(ctx context.Context, class graph.IRI) (graph.IRI, error)
}

// Generator kinds accepted by New.
const (
	KindUUID = "uuid"
	KindMeta = "meta"
)

// Config selects and parameterizes a generator.
type Config struct {
	Kind           string
	Base           string
	SupplierPrefix string
}

// New builds the generator described by cfg. counter is only used by the
// meta generator.
func New(cfg Config, counter storage.Counter) (Generator, error) {
	if cfg.Base == "" {
		return nil, fmt.Errorf("uri base required")
	}
	switch strings.ToLower(cfg.Kind) {
	case "", KindUUID:
		return &UUIDGenerator{Base: cfg.Base}, nil
	case KindMeta:
		if counter == nil {
			return nil, fmt.Errorf("meta generator requires a counter")
		}
		return &MetaGenerator{Base: cfg.Base, SupplierPrefix: cfg.SupplierPrefix, Counter: counter}, nil
	default:
		return nil, fmt.Errorf("unknown uri generator %q", cfg.Kind)
	}
}

// UUIDGenerator mints {base}/{uuid}.
type UUIDGenerator struct {
	Base string
}

// Generate implements Generator.
func (g *UUIDGenerator) Generate(_ context.Context, _ graph.IRI) (graph.IRI, error) {
	return graph.IRI(strings.TrimRight(g.Base, "/") + "/" + uuid.NewString()), nil
}

// MetaGenerator mints OpenCitations Meta style IRIs,
// {base}/{short}/{supplierPrefix}{n}, numbering each short name separately.
type MetaGenerator struct {
	Base           string
	SupplierPrefix string
	Counter        storage.Counter
}

// Generate implements Generator.
func (g *MetaGenerator) Generate(ctx context.Context, class graph.IRI) (graph.IRI, error) {
	short := ShortName(class)
	n, err := g.Counter.Next(ctx, g.SupplierPrefix+short)
	if err != nil {
		return "", fmt.Errorf("generate %s iri: %w", short, err)
	}
	return graph.IRI(fmt.Sprintf("%s/%s/%s%d", strings.TrimRight(g.Base, "/"), short, g.SupplierPrefix, n)), nil
}

var shortNames = map[graph.IRI]string{
	heritrace.ClassAgent:         "ra",
	heritrace.ClassIdentifier:    "id",
	heritrace.ClassRoleInTime:    "ar",
	heritrace.ClassManifestation: "re",
}

// ShortName returns the OMID entity short name for class. Anything that is
// not an agent, identifier, role or manifestation is a bibliographic
// resource.
func ShortName(class graph.IRI) string {
	if s, ok := shortNames[class]; ok {
		return s
	}
	return "br"
}
