package models

import "math"

// RandomFunc maps a seed onto a uniform draw in [0, 1).
type RandomFunc func(seed float64) float64

// SeededRandom is a pure function of its seed: repeated calls with the same
// seed return the same draw. It is not suitable for anything cryptographic.
func SeededRandom(seed float64) float64 {
	x := math.Sin(seed*9301+49297) * 49297
	r := x - math.Floor(x)
	if r >= 1 || r < 0 || math.IsNaN(r) {
		return 0
	}

	return r
}
