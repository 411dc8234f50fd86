package model

import (
	"math"
	"testing"
)

func TestLocation_Immutability(t *testing.T) {
	original := NewLocation(100, 200, 300, 1000)

	moved := original.WithCoordinates(-1, -2, -3)
	turned := original.WithHeading(65535)
	shifted := original.Offset(50, -50)

	if moved != (Location{X: -1, Y: -2, Z: -3, Heading: 1000}) {
		t.Errorf("WithCoordinates() = %+v", moved)
	}
	if turned != (Location{X: 100, Y: 200, Z: 300, Heading: 65535}) {
		t.Errorf("WithHeading() = %+v", turned)
	}
	if shifted != (Location{X: 150, Y: 150, Z: 300, Heading: 1000}) {
		t.Errorf("Offset() = %+v", shifted)
	}
	if original != NewLocation(100, 200, 300, 1000) {
		t.Errorf("original mutated: %+v", original)
	}
}

func TestLocation_Distances(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Location
		sq     int64
		ground float64
	}{
		{"same point", NewLocation(5, 5, 5, 0), NewLocation(5, 5, 5, 0), 0, 0},
		{"3-4-5 triangle", NewLocation(0, 0, 0, 0), NewLocation(3, 4, 0, 0), 25, 5},
		{"height ignored on ground plane", NewLocation(0, 0, 0, 0), NewLocation(0, 0, 10, 0), 100, 0},
		{"negative quadrant", NewLocation(-3, -4, 0, 0), NewLocation(0, 0, 0, 0), 25, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.DistanceSquared(tt.b); got != tt.sq {
				t.Errorf("DistanceSquared() = %d, want %d", got, tt.sq)
			}
			if got := tt.a.Distance2D(tt.b); math.Abs(got-tt.ground) > 1e-9 {
				t.Errorf("Distance2D() = %f, want %f", got, tt.ground)
			}
		})
	}
}

func TestMeanLocation(t *testing.T) {
	if _, ok := MeanLocation(nil); ok {
		t.Fatal("MeanLocation(nil) ok = true, want false")
	}

	mean, ok := MeanLocation([]Location{
		NewLocation(0, 0, 0, 0),
		NewLocation(100, 0, 0, 0),
		NewLocation(100, 100, 30, 0),
		NewLocation(0, 100, 10, 0),
	})
	if !ok {
		t.Fatal("MeanLocation() ok = false")
	}
	if mean != (Location{X: 50, Y: 50, Z: 10}) {
		t.Errorf("MeanLocation() = %+v, want {50 50 10}", mean)
	}
}
