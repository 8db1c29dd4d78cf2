package utils

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Measure runs f and reports how long it took.
func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	return time.Since(t0), err
}

// Rate is n per second over d.
func Rate(n int64, d time.Duration) float64 {
	return float64(n) / d.Seconds()
}

// ShowRate formats a rate given in bytes per second.
func ShowRate(r float64) string {
	return humanize.IBytes(uint64(r)) + "/s"
}

// ShowSize formats a byte count.
func ShowSize(n int64) string {
	return humanize.IBytes(uint64(n))
}

// ParseBytes parses sizes like "4MiB" or "512".
func ParseBytes(s string) (uint64, error) {
	return humanize.ParseBytes(s)
}

// Pluralize prints n with the noun in the matching number.
func Pluralize(n int, singular, plural string) string {
	noun := singular
	if n != 1 {
		noun = plural
	}
	return strconv.Itoa(n) + " " + noun
}
