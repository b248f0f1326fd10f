// Package storage provides the entity data the validator reads and the
// changesets the curation API writes: an in-memory graph, a remote SPARQL
// endpoint, and sequence counters for minting entity URIs.
package storage

import (
	"context"

	"github.com/c360studio/heritrace/graph"
)

// Changeset is a set of triples to delete and insert in one step. Removals
// are applied before additions.
type Changeset struct {
	Add    []graph.Triple
	Remove []graph.Triple
}

// Empty reports whether the changeset has nothing to apply.
func (c Changeset) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

// EntityStore is a readable and writable triple store. It satisfies
// shacl.Source.
type EntityStore interface {
	// Triples returns the triples having subject as subject.
	Triples(ctx context.Context, subject graph.Term) ([]graph.Triple, error)

	// Types returns the rdf:type values of subject.
	Types(ctx context.Context, subject graph.Term) ([]graph.IRI, error)

	// InverseTypes returns the types of the entities referencing subject.
	InverseTypes(ctx context.Context, subject graph.Term) ([]graph.IRI, error)

	// Exists reports whether subject has any triple.
	Exists(ctx context.Context, subject graph.Term) (bool, error)

	// Describe returns the triples of subject and of the blank nodes it
	// references. It returns ErrNotFound when subject has no triples.
	Describe(ctx context.Context, subject graph.Term) (*graph.Graph, error)

	// Apply writes a changeset.
	Apply(ctx context.Context, cs Changeset) error
}

func appendUniqueIRIs(dst []graph.IRI, seen map[graph.IRI]bool, iris ...graph.IRI) []graph.IRI {
	for _, iri := range iris {
		if !seen[iri] {
			seen[iri] = true
			dst = append(dst, iri)
		}
	}
	return dst
}
