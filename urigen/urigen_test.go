package urigen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/storage"
	"github.com/c360studio/heritrace/vocabulary/heritrace"
)

func TestUUIDGenerator(t *testing.T) {
	g := &UUIDGenerator{Base: "https://example.org/"}
	a, err := g.Generate(context.Background(), heritrace.ClassJournalArticle)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), heritrace.ClassJournalArticle)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(a), "https://example.org/"))
	assert.False(t, strings.Contains(strings.TrimPrefix(string(a), "https://"), "//"))
	assert.NotEqual(t, a, b)
	assert.True(t, graph.LooksLikeIRI(string(a)))
}

func TestMetaGenerator(t *testing.T) {
	ctx := context.Background()
	g := &MetaGenerator{
		Base:           "https://w3id.org/oc/meta",
		SupplierPrefix: "060",
		Counter:        storage.NewMemoryCounter(),
	}

	tests := []struct {
		class graph.IRI
		want  graph.IRI
	}{
		{heritrace.ClassJournalArticle, "https://w3id.org/oc/meta/br/0601"},
		{heritrace.ClassJournal, "https://w3id.org/oc/meta/br/0602"},
		{heritrace.ClassAgent, "https://w3id.org/oc/meta/ra/0601"},
		{heritrace.ClassIdentifier, "https://w3id.org/oc/meta/id/0601"},
		{heritrace.ClassRoleInTime, "https://w3id.org/oc/meta/ar/0601"},
		{heritrace.ClassManifestation, "https://w3id.org/oc/meta/re/0601"},
		{heritrace.ClassIdentifier, "https://w3id.org/oc/meta/id/0602"},
	}
	for _, tt := range tests {
		got, err := g.Generate(ctx, tt.class)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

type failingCounter struct{}

func (failingCounter) Next(context.Context, string) (int64, error) {
	return 0, errors.New("unavailable")
}

func TestMetaGeneratorCounterError(t *testing.T) {
	g := &MetaGenerator{Base: "https://example.org", Counter: failingCounter{}}
	_, err := g.Generate(context.Background(), heritrace.ClassAgent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate ra iri")
}

func TestNew(t *testing.T) {
	g, err := New(Config{Base: "https://example.org"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &UUIDGenerator{}, g)

	g, err = New(Config{Kind: "META", Base: "https://example.org", SupplierPrefix: "1"}, storage.NewMemoryCounter())
	require.NoError(t, err)
	assert.IsType(t, &MetaGenerator{}, g)

	_, err = New(Config{Kind: KindMeta, Base: "https://example.org"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Kind: "sequential", Base: "https://example.org"}, nil)
	assert.Error(t, err)

	_, err = New(Config{}, nil)
	assert.Error(t, err)
}
