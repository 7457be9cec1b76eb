package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/config"
)

func TestInitParsesKnownLevel(t *testing.T) {
	l := Init(config.LoggingConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	l := Init(config.LoggingConfig{Level: "not-a-level"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestParseMaxSizeMBDefaultsOnGarbage(t *testing.T) {
	assert.Equal(t, 50, parseMaxSizeMB("garbage"))
	assert.Equal(t, 100, parseMaxSizeMB("100MB"))
}

func TestGetReturnsSameSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestInitWithFileRoutesToLumberjack(t *testing.T) {
	dir := t.TempDir()
	l := Init(config.LoggingConfig{Level: "info", ToFile: true, FilePath: filepath.Join(dir, "goatd.log"), MaxSize: "10MB"})
	assert.NotNil(t, l.logFile)
}
