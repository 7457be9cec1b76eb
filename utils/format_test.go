package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDurationUs(t *testing.T) {
	assert.Equal(t, "1.50 us", FormatDurationUs(1500))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "42.0%", FormatPercent(0.42))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "850/1000", FormatScore(850))
}
