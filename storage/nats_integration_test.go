//go:build integration

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/graph"
)

func TestKVCounter(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()

	js, err := tc.Client.JetStream()
	require.NoError(t, err)

	c, err := NewKVCounter(ctx, js, "")
	require.NoError(t, err)

	n, err := c.Next(ctx, "br")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Next(ctx, "br")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Reopening the bucket keeps the sequence.
	again, err := NewKVCounter(ctx, js, "")
	require.NoError(t, err)
	n, err = again.Next(ctx, "br")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestKVCounterConcurrent(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()

	js, err := tc.Client.JetStream()
	require.NoError(t, err)
	c, err := NewKVCounter(ctx, js, "HERITRACE_COUNTERS_RACE")
	require.NoError(t, err)

	const workers = 5
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Next(ctx, "ra")
			if assert.NoError(t, err) {
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers, "every increment is unique")
}

func TestPublishingStoreNATS(t *testing.T) {
	tc := natsclient.NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	require.NoError(t, tc.Client.Subscribe(ctx, SubjectEntityChanged, func(_ context.Context, data []byte) {
		received <- data
	}))

	store := NewPublishingStore(NewMemoryStore(nil), tc.Client, "", nil)
	subject := graph.IRI("https://w3id.org/oc/meta/br/0601")
	require.NoError(t, store.Apply(ctx, Changeset{Add: []graph.Triple{
		{Subject: subject, Predicate: "http://purl.org/dc/terms/title", Object: graph.NewLiteral("Published")},
	}}))

	select {
	case data := <-received:
		change := decodeChange(t, data)
		assert.Equal(t, string(subject), change.Entity)
		require.Len(t, change.Added, 1)
		assert.Equal(t, "Published", change.Added[0].Object)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
	}
}
