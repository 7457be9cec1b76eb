// Package utils holds small formatting helpers. No other package of
// this module imports it.
package utils

import "fmt"

// FormatDurationUs renders a nanosecond duration as a microsecond
// string with two decimal places.
func FormatDurationUs(ns int64) string {
	return fmt.Sprintf("%.2f us", float64(ns)/1000.0)
}

// FormatPercent renders a 0..1 fraction as a percentage string.
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// FormatScore renders a 0..1000 GOAT Score with its fixed-width label.
func FormatScore(score int) string {
	return fmt.Sprintf("%d/1000", score)
}

// FormatCelsius renders a temperature with one decimal place.
func FormatCelsius(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}
