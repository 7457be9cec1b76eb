package watchdog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatPreventsEmergencyThaw(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup.freeze"), []byte("1"), 0644))

	w := New(dir)
	w.pollInterval = 5 * time.Millisecond
	w.timeout = 200 * time.Millisecond
	w.wg.Add(1)
	go w.run()

	stop := time.After(60 * time.Millisecond)
	for {
		select {
		case <-stop:
			close(w.stop)
			w.wg.Wait()
			assert.Equal(t, uint64(0), w.EmergencyThaws())
			return
		default:
			w.Heartbeat()
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func TestTimeoutTriggersEmergencyThaw(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup.freeze"), []byte("1"), 0644))

	w := New(dir)
	w.pollInterval = 2 * time.Millisecond
	w.timeout = 5 * time.Millisecond
	w.wg.Add(1)
	go w.run()

	time.Sleep(40 * time.Millisecond)
	close(w.stop)
	w.wg.Wait()

	assert.GreaterOrEqual(t, w.EmergencyThaws(), uint64(1))
	data, _ := os.ReadFile(filepath.Join(dir, "cgroup.freeze"))
	assert.Equal(t, "0", string(data))
}

func TestHeartbeatSaturatesInsteadOfWrapping(t *testing.T) {
	w := New(t.TempDir())
	w.heartbeat.Store(^uint64(0))
	w.Heartbeat()
	assert.Equal(t, ^uint64(0), w.heartbeat.Load())
}

func TestNoWritesAfterStop(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup.freeze"), []byte("0"), 0644))
	w := New(dir)
	w.Start()
	w.Stop()
	info, _ := os.Stat(filepath.Join(dir, "cgroup.freeze"))
	before := info.ModTime()
	time.Sleep(20 * time.Millisecond)
	info2, _ := os.Stat(filepath.Join(dir, "cgroup.freeze"))
	assert.Equal(t, before, info2.ModTime())
}
