// Package scoring holds the deterministic relationship heuristics: connection
// strength, priority, keyword sentiment, follow-ups and birthdays.
//
// Every function is pure and takes the current time explicitly.
package scoring

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// daysSince returns fractional days elapsed from t to now. Future times yield 0.
func daysSince(t, now time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
