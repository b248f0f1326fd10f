package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketCounters is the default key-value bucket holding URI counters.
const BucketCounters = "HERITRACE_COUNTERS"

// Counter hands out increasing sequence numbers per key, starting at 1.
type Counter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounter returns a counter with every key at zero.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int64)}
}

// Next implements Counter.
func (c *MemoryCounter) Next(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}

// KVCounter keeps counters in a JetStream key-value bucket so that several
// processes can mint URIs without collisions.
type KVCounter struct {
	kv    jetstream.KeyValue
	retry retry.Config
}

// NewKVCounter opens the counter bucket, creating it when missing.
func NewKVCounter(ctx context.Context, js jetstream.JetStream, bucket string) (*KVCounter, error) {
	if bucket == "" {
		bucket = BucketCounters
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("counter bucket %s: %w", bucket, err)
	}
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 10
	return &KVCounter{kv: kv, retry: cfg}, nil
}

// getOrCreateBucket gets or creates a KV bucket.
func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("HERITRACE %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// Next implements Counter. Concurrent increments are resolved with
// revision-checked writes; a lost race is retried.
func (c *KVCounter) Next(ctx context.Context, key string) (int64, error) {
	n, err := retry.DoWithResult(ctx, c.retry, func() (int64, error) {
		return c.increment(ctx, key)
	})
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", key, err)
	}
	return n, nil
}

func (c *KVCounter) increment(ctx context.Context, key string) (int64, error) {
	entry, err := c.kv.Get(ctx, key)
	if isNotFound(err) {
		if _, err := c.kv.Create(ctx, key, []byte("1")); err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				return 0, ErrConflict
			}
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	current, err := strconv.ParseInt(string(entry.Value()), 10, 64)
	if err != nil {
		return 0, retry.NonRetryable(fmt.Errorf("counter %s holds %q: %w", key, entry.Value(), err))
	}
	next := current + 1
	if _, err := c.kv.Update(ctx, key, []byte(strconv.FormatInt(next, 10)), entry.Revision()); err != nil {
		if isConflict(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return next, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		(err != nil && strings.Contains(err.Error(), "key not found"))
}

// isConflict checks if an error indicates a revision mismatch.
func isConflict(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists) ||
		(err != nil && strings.Contains(err.Error(), "wrong last sequence"))
}
