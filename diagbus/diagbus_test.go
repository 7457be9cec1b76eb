package diagbus

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSendAndClose(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	b := New(4, log)
	b.Send("hello %d", 1)
	assert.True(t, b.waitEmpty(100*time.Millisecond))
	b.Close()
	assert.Equal(t, uint64(0), b.Dropped())
}

func TestSendAfterCloseIsNoop(t *testing.T) {
	b := New(1, nil)
	b.Close()
	assert.NotPanics(t, func() { b.Send("after close") })
}

func TestSendDropsWhenFull(t *testing.T) {
	b := &Bus{ch: make(chan string, 1)}
	b.ch <- "occupies the only slot"
	b.Send("dropped")
	assert.Equal(t, uint64(1), b.Dropped())
}
