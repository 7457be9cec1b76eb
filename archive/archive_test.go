package archive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.PerformanceRecord]("goatdkernel/performance/records", "perf_record")

	rec := models.PerformanceRecord{ID: "1700000000000", Label: "test run", Timestamp: 1700000000000}
	assert.NoError(t, store.Save(rec))

	loaded, err := store.Load("1700000000000")
	assert.NoError(t, err)
	assert.Equal(t, rec.Label, loaded.Label)
	assert.Equal(t, rec.Timestamp, loaded.Timestamp)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.PerformanceRecord]("goatdkernel/performance/records", "perf_record")

	assert.NoError(t, store.Save(models.PerformanceRecord{ID: "1", Timestamp: 100}))
	assert.NoError(t, store.Save(models.PerformanceRecord{ID: "2", Timestamp: 200}))

	list, err := store.List()
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(200), list[0].Timestamp)
	assert.Equal(t, int64(100), list[1].Timestamp)
}

func TestDeleteRemovesRecord(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.PerformanceRecord]("goatdkernel/performance/records", "perf_record")
	assert.NoError(t, store.Save(models.PerformanceRecord{ID: "1", Timestamp: 100}))
	assert.NoError(t, store.Delete("100"))
	count, err := store.Count()
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestListMetadataAvoidsFullDecode(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.BenchmarkRun]("goatd/benchmarks", "run")
	assert.NoError(t, store.Save(models.BenchmarkRun{ID: "1", Label: "gauntlet", Timestamp: 500}))

	meta, err := store.ListMetadata()
	assert.NoError(t, err)
	assert.Len(t, meta, 1)
	assert.Equal(t, "gauntlet", meta[0].Label)
}

func TestLoadMissingRecordReturnsErrNotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.PerformanceRecord]("goatdkernel/performance/records", "perf_record")

	_, err := store.Load("does-not-exist")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadEmptyIDReturnsErrInvalidArgument(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := NewStore[models.PerformanceRecord]("goatdkernel/performance/records", "perf_record")

	_, err := store.Load("")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestDisplayNameDefaultsToUnnamed(t *testing.T) {
	name := DisplayName("", 1700000000000)
	assert.Contains(t, name, "Unnamed")
	assert.Contains(t, name, "UTC")
}
