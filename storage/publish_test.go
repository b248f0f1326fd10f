package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/graph"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, data)
	return nil
}

// decodeChange extracts the payload from a published message.
func decodeChange(t *testing.T, data []byte) ChangePayload {
	t.Helper()
	var wire struct {
		Payload ChangePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &wire))
	return wire.Payload
}

func TestChangePayloads(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := graph.IRI("http://example.org/a")
	b := graph.IRI("http://example.org/b")
	cs := Changeset{
		Remove: []graph.Triple{{Subject: a, Predicate: "http://purl.org/dc/terms/title", Object: graph.NewLiteral("Old")}},
		Add: []graph.Triple{
			{Subject: a, Predicate: "http://purl.org/dc/terms/title", Object: graph.NewLangLiteral("Nuovo", "it")},
			{Subject: b, Predicate: "http://prismstandard.org/namespaces/basic/2.0/publicationDate", Object: graph.NewTypedLiteral("2024", "http://www.w3.org/2001/XMLSchema#gYear")},
			{Subject: b, Predicate: "http://purl.org/vocab/frbr/core#partOf", Object: a},
		},
	}

	payloads := ChangePayloads(cs, now)
	require.Len(t, payloads, 2)

	assert.Equal(t, "http://example.org/a", payloads[0].Entity)
	require.Len(t, payloads[0].Removed, 1)
	require.Len(t, payloads[0].Added, 1)
	assert.Equal(t, "Old", payloads[0].Removed[0].Object)
	assert.Equal(t, "@it", payloads[0].Added[0].Datatype)
	assert.Equal(t, now, payloads[0].UpdatedAt)

	assert.Equal(t, "http://example.org/b", payloads[1].Entity)
	require.Len(t, payloads[1].Added, 2)
	assert.Equal(t, "xsd:gYear", payloads[1].Added[0].Datatype)
	assert.Equal(t, "http://example.org/a", payloads[1].Added[1].Object)
	assert.Empty(t, payloads[1].Added[1].Datatype)
	assert.Equal(t, 1.0, payloads[1].Added[1].Confidence)

	assert.NoError(t, payloads[0].Validate())
	assert.Error(t, (&ChangePayload{Entity: "x"}).Validate())
	assert.Error(t, (&ChangePayload{}).Validate())
}

func TestPublishingStoreApply(t *testing.T) {
	ctx := context.Background()
	inner := newTestMemoryStore(t)
	pub := &recordingPublisher{}
	store := NewPublishingStore(inner, pub, "", nil)

	subject := graph.IRI("http://example.org/new")
	err := store.Apply(ctx, Changeset{Add: []graph.Triple{
		{Subject: subject, Predicate: "http://purl.org/dc/terms/title", Object: graph.NewLiteral("Fresh")},
	}})
	require.NoError(t, err)

	exists, err := store.Exists(ctx, subject)
	require.NoError(t, err)
	assert.True(t, exists, "reads go to the wrapped store")

	require.Len(t, pub.messages, 1)
	assert.Equal(t, SubjectEntityChanged, pub.subjects[0])
	change := decodeChange(t, pub.messages[0])
	assert.Equal(t, "http://example.org/new", change.Entity)
	require.Len(t, change.Added, 1)
	assert.Equal(t, "Fresh", change.Added[0].Object)
}

func TestPublishingStoreFailures(t *testing.T) {
	ctx := context.Background()
	subject := graph.IRI("http://example.org/new")
	cs := Changeset{Add: []graph.Triple{
		{Subject: subject, Predicate: "http://purl.org/dc/terms/title", Object: graph.NewLiteral("Fresh")},
	}}

	t.Run("publish failure keeps the write", func(t *testing.T) {
		inner := newTestMemoryStore(t)
		store := NewPublishingStore(inner, &recordingPublisher{err: errors.New("not connected")}, "custom.subject", nil)
		require.NoError(t, store.Apply(ctx, cs))
		exists, err := inner.Exists(ctx, subject)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("empty changeset publishes nothing", func(t *testing.T) {
		pub := &recordingPublisher{}
		store := NewPublishingStore(newTestMemoryStore(t), pub, "", nil)
		require.NoError(t, store.Apply(ctx, Changeset{}))
		assert.Empty(t, pub.messages)
	})
}
