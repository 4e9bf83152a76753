package mathx

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	if got := Round(123.46, 0.1); math.Abs(got-123.5) > 1e-9 {
		t.Errorf("Round(123.46, 0.1) = %v", got)
	}
	if got := Round(0.025, 0.01); math.Abs(got-0.03) > 1e-9 {
		t.Errorf("Round(0.025, 0.01) = %v", got)
	}
}

func TestRoundPlaces(t *testing.T) {
	if got := RoundPlaces(0.500147, 4); math.Abs(got-0.5001) > 1e-12 {
		t.Errorf("RoundPlaces(0.500147, 4) = %v", got)
	}
	if got := RoundPlaces(999.67, 1); math.Abs(got-999.7) > 1e-9 {
		t.Errorf("RoundPlaces(999.67, 1) = %v", got)
	}
}
