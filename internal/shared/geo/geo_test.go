package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Lower Manhattan to Local Park in the mock challenge set, roughly 0.8 km
	d := HaversineKm(40.7128, -74.0060, 40.7193, -74.0020)
	if d < 0.6 || d > 0.9 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineKmSamePoint(t *testing.T) {
	if d := HaversineKm(40.7128, -74.0060, 40.7128, -74.0060); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
