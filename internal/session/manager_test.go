package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDispose(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "svault_import"), nil)

	s, err := m.Create()
	require.NoError(t, err)
	assert.DirExists(t, s.Dir)
	assert.Equal(t, s.Dir, s.Root)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Dispose(s.ID))
	assert.NoDirExists(t, s.Dir)
	assert.Equal(t, 0, m.Len())

	// Idempotent.
	require.NoError(t, m.Dispose(s.ID))
	require.NoError(t, s.Cleanup())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeConsumesOnce(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Take(s.ID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	// Taken sessions keep their directory until the consumer cleans up.
	assert.DirExists(t, s.Dir)
	require.NoError(t, s.Cleanup())
	assert.NoDirExists(t, s.Dir)
}

func TestSetRoot(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.Create()
	require.NoError(t, err)

	inner := filepath.Join(s.Dir, "wrapped")
	require.NoError(t, m.SetRoot(s.ID, inner))
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, inner, got.Root)

	assert.ErrorIs(t, m.SetRoot("nope", inner), ErrNotFound)
}

func TestCleanupToleratesMissingDir(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(s.Dir))
	assert.NoError(t, m.Dispose(s.ID))
}

func TestClose(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	var dirs []string
	for i := 0; i < 3; i++ {
		s, err := m.Create()
		require.NoError(t, err)
		dirs = append(dirs, s.Dir)
	}

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
	for _, d := range dirs {
		assert.NoDirExists(t, d)
	}
}

func TestConcurrentCreateUsesDistinctDirs(t *testing.T) {
	m := NewManager(t.TempDir(), nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Create()
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[s.Dir] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 10)
	assert.Equal(t, 10, m.Len())
}
