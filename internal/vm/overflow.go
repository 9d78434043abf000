package vm

import "math"

// addChecked returns (a+b, ok). ok is false on signed overflow.
func addChecked(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// subChecked returns (a-b, ok). ok is false on signed overflow.
func subChecked(a, b int64) (int64, bool) {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}

// mulChecked returns (a*b, ok). ok is false on signed overflow.
func mulChecked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, false
	}
	res := a * b
	if res/b != a {
		return 0, false
	}
	return res, true
}

// powChecked raises a to a non-negative exponent by squaring.
func powChecked(a, e int64) (int64, bool) {
	res := int64(1)
	base := a
	for e > 0 {
		if e&1 == 1 {
			var ok bool
			if res, ok = mulChecked(res, base); !ok {
				return 0, false
			}
		}
		e >>= 1
		if e > 0 {
			var ok bool
			if base, ok = mulChecked(base, base); !ok {
				return 0, false
			}
		}
	}
	return res, true
}

// floorDiv divides rounding toward negative infinity; b must be non-zero.
func floorDiv(a, b int64) (int64, bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q, true
}

// floorMod returns a remainder with the sign of b; b must be non-zero.
func floorMod(a, b int64) int64 {
	if b == -1 {
		return 0
	}
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func floatFloorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	if m == 0 {
		m = math.Copysign(0, b)
	}
	return m
}
