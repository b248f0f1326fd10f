package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/graph"
)

const memoryData = `
@prefix ex: <http://example.org/> .
@prefix fabio: <http://purl.org/spar/fabio/> .
@prefix datacite: <http://purl.org/spar/datacite/> .

ex:article a fabio:JournalArticle, fabio:Expression ;
    datacite:hasIdentifier ex:id1 ;
    ex:note [ ex:text "inline" ] .

ex:id1 a datacite:Identifier .
`

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	g, err := graph.ParseString(memoryData, graph.FormatTurtle)
	require.NoError(t, err)
	return NewMemoryStore(g)
}

func TestMemoryStoreReads(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)
	article := graph.IRI("http://example.org/article")
	id := graph.IRI("http://example.org/id1")

	triples, err := s.Triples(ctx, article)
	require.NoError(t, err)
	assert.Len(t, triples, 4)

	types, err := s.Types(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, []graph.IRI{
		"http://purl.org/spar/fabio/JournalArticle",
		"http://purl.org/spar/fabio/Expression",
	}, types)

	inverse, err := s.InverseTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types, inverse)

	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, graph.IRI("http://example.org/missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDescribe(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	g, err := s.Describe(ctx, graph.IRI("http://example.org/article"))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len(), "subject triples plus the blank node's")

	_, err = s.Describe(ctx, graph.IRI("http://example.org/missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreApply(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	subject := graph.IRI("http://example.org/br/1")
	title := graph.IRI("http://purl.org/dc/terms/title")

	oldTitle := graph.Triple{Subject: subject, Predicate: title, Object: graph.NewLiteral("Old")}
	newTitle := graph.Triple{Subject: subject, Predicate: title, Object: graph.NewLiteral("New")}

	require.NoError(t, s.Apply(ctx, Changeset{Add: []graph.Triple{oldTitle}}))
	require.NoError(t, s.Apply(ctx, Changeset{Remove: []graph.Triple{oldTitle}, Add: []graph.Triple{newTitle}}))

	triples, err := s.Triples(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, []graph.Triple{newTitle}, triples)

	snap := s.Snapshot()
	require.NoError(t, s.Apply(ctx, Changeset{Remove: []graph.Triple{newTitle}}))
	assert.Equal(t, 1, snap.Len(), "snapshot is a copy")
}

func TestChangesetEmpty(t *testing.T) {
	assert.True(t, Changeset{}.Empty())
	assert.False(t, Changeset{Remove: []graph.Triple{{}}}.Empty())
}

func TestLoadMemoryStoreMissingFile(t *testing.T) {
	_, err := LoadMemoryStore("testdata/does-not-exist.ttl")
	require.Error(t, err)

	s, err := LoadMemoryStore()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Snapshot().Len())
}
