package freezer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcludedCoversAncestryChain(t *testing.T) {
	f := &Freezer{selfPID: 100, parentPID: 50, grandparentPID: 25}
	assert.True(t, f.excluded(1))
	assert.True(t, f.excluded(100))
	assert.True(t, f.excluded(50))
	assert.True(t, f.excluded(25))
	assert.False(t, f.excluded(9999))
}

func TestEmergencyThawWritesZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cgroup.freeze")
	assert.NoError(t, os.WriteFile(path, []byte("1"), 0644))
	assert.NoError(t, EmergencyThaw(dir))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "0", string(data))
}

func TestCleanupIsIdempotentAfterManualThaw(t *testing.T) {
	dir := t.TempDir()
	f := &Freezer{dir: filepath.Join(dir, "benchmark_freeze")}
	assert.NoError(t, os.MkdirAll(f.dir, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(f.dir, "cgroup.freeze"), []byte("0"), 0644))
	assert.NoError(t, f.Cleanup())
	_, err := os.Stat(f.dir)
	assert.True(t, os.IsNotExist(err))
}
