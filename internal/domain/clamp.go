package domain

import "math"

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampPct bounds a percentage to [0, 100].
func ClampPct(v float64) float64 {
	return Clamp(v, 0, 100)
}

// ClampUnit bounds v to [0, 1].
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// ClampSigned bounds v to [-1, 1].
func ClampSigned(v float64) float64 {
	return Clamp(v, -1, 1)
}
