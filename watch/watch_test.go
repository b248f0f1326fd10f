package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/shacl"
)

const oneShape = `
@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://example.org/> .

ex:AShape a sh:NodeShape ; sh:targetClass ex:A .
`

const twoShapes = oneShape + `
ex:BShape a sh:NodeShape ; sh:targetClass ex:B .
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestReloader watches a temp shapes file. Loads fail while broken is set.
func newTestReloader(t *testing.T, broken *atomic.Bool) (*Reloader, string) {
	t.Helper()
	dir := t.TempDir()
	shapesFile := filepath.Join(dir, "shapes.ttl")
	writeFile(t, shapesFile, oneShape)

	pattern := filepath.Join(dir, "*.ttl")
	load := func() (*shacl.Resolver, error) {
		if broken != nil && broken.Load() {
			return nil, errors.New("broken shapes")
		}
		return shacl.Load([]string{pattern}, "", nil, shacl.Options{})
	}
	r, err := New(load, Config{Patterns: []string{pattern}, DebounceDelay: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop() })
	return r, shapesFile
}

func TestReloaderPicksUpChanges(t *testing.T) {
	r, shapesFile := newTestReloader(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	assert.Len(t, r.Resolver().Shapes().All(), 1)

	writeFile(t, shapesFile, twoShapes)
	require.Eventually(t, func() bool {
		return len(r.Resolver().Shapes().All()) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, r.Reloads(), int64(1))
}

func TestReloaderKeepsResolverOnFailure(t *testing.T) {
	var broken atomic.Bool
	r, shapesFile := newTestReloader(t, &broken)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	before := r.Resolver()

	broken.Store(true)
	writeFile(t, shapesFile, twoShapes)
	require.Eventually(t, func() bool {
		return r.Failures() > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Same(t, before, r.Resolver())
}

func TestReloaderIgnoresUnrelatedFiles(t *testing.T) {
	r, shapesFile := newTestReloader(t, nil)
	assert.True(t, r.matches(shapesFile))
	assert.False(t, r.matches(filepath.Join(filepath.Dir(shapesFile), "notes.md")))
}

func TestNewRequiresInitialLoad(t *testing.T) {
	_, err := New(func() (*shacl.Resolver, error) {
		return nil, errors.New("broken")
	}, Config{}, nil)
	require.Error(t, err)
}

func TestManualReloadFailure(t *testing.T) {
	var broken atomic.Bool
	r, _ := newTestReloader(t, &broken)
	before := r.Resolver()

	broken.Store(true)
	require.Error(t, r.Reload())
	assert.Same(t, before, r.Resolver())
	assert.Equal(t, int64(1), r.Failures())
}

func TestManualReload(t *testing.T) {
	r, shapesFile := newTestReloader(t, nil)
	writeFile(t, shapesFile, twoShapes)
	require.NoError(t, r.Reload())
	assert.Len(t, r.Resolver().Shapes().All(), 2)
	assert.Equal(t, int64(1), r.Reloads())
}
