package http

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	return p
}

func TestArtifacts_ConcurrentAdds(t *testing.T) {
	a := &artifacts{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.add(fmt.Sprintf("/tmp/artifact-%d", i))
		}()
	}
	wg.Wait()

	assert.Len(t, a.Paths(), 100)
}

func TestArtifacts_CleanupRunsOnce(t *testing.T) {
	dir := t.TempDir()
	a := &artifacts{}
	a.add(touch(t, dir, "one"))
	a.add(touch(t, dir, "two"))

	first := a.cleanup(discardLogger())
	second := a.cleanup(discardLogger())

	assert.Equal(t, CleanupReport{Removed: 2}, first)
	assert.Equal(t, CleanupReport{}, second)
	assert.Empty(t, a.Paths())
	assertDirEmpty(t, dir)
}

func TestArtifacts_CleanupToleratesFailures(t *testing.T) {
	dir := t.TempDir()
	nonEmpty := filepath.Join(dir, "busy")
	require.NoError(t, os.Mkdir(nonEmpty, 0o755))
	touch(t, nonEmpty, "inner")

	a := &artifacts{}
	a.add(touch(t, dir, "kept"))
	a.add(nonEmpty)
	a.add(filepath.Join(dir, "already-gone"))

	report := a.cleanup(discardLogger())

	assert.Equal(t, CleanupReport{Removed: 2, Failed: 1}, report)
	_, err := os.Stat(filepath.Join(dir, "kept"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArtifacts_IsolatedPerRequest(t *testing.T) {
	dir := t.TempDir()
	requestA := &artifacts{}
	requestB := &artifacts{}
	fileA := touch(t, dir, "a")
	fileB := touch(t, dir, "b")
	requestA.add(fileA)
	requestB.add(fileB)

	requestB.cleanup(discardLogger())

	_, err := os.Stat(fileA)
	assert.NoError(t, err)
	_, err = os.Stat(fileB)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
