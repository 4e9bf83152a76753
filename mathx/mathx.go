// Package mathx provides quantization helpers for device command formatting.
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// RoundPlaces rounds a float to n digits after the decimal point.
// RoundPlaces(0.99965, 4) == 0.9997, matching the %.4f command formatting
// used for supply currents.
func RoundPlaces(x float64, n int) float64 {
	unit := math.Pow(10, -float64(n))
	return Round(x, unit)
}
