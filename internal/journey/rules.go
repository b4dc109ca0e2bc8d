package journey

import (
	"math"
	"time"
)

const (
	// CarbonKgPerKm is the CO2 avoided per km compared with driving.
	CarbonKgPerKm = 0.12
	// PublicTransitCarbonFactor scales CarbonKgPerKm for public transit.
	PublicTransitCarbonFactor = 1.0
	PointsPerLevel            = 500
)

// speedKmh is the nominal speed used to turn elapsed time into distance.
var speedKmh = map[Mode]float64{
	ModeWalking: 5,
	ModeBiking:  15,
	ModePublic:  25,
	ModeCar:     40,
}

// pointRule awards floor(distance/per) points, never less than min.
type pointRule struct {
	per int
	min int
}

var pointRules = map[Mode]pointRule{
	ModeWalking: {per: 100, min: 5},
	ModeBiking:  {per: 200, min: 3},
	ModePublic:  {per: 300, min: 2},
}

func Level(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return totalPoints/PointsPerLevel + 1
}

// DistanceKm is the simulated distance covered in elapsed time at the mode's nominal speed.
func DistanceKm(mode Mode, elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := float64(elapsed.Milliseconds()) / 60000
	return speedKmh[mode] * minutes / 60
}

func CarbonSaved(mode Mode, distanceKm float64) float64 {
	switch mode {
	case ModeCar:
		return 0
	case ModePublic:
		return distanceKm * CarbonKgPerKm * PublicTransitCarbonFactor
	default:
		return distanceKm * CarbonKgPerKm
	}
}

func Points(mode Mode, distanceM int) int {
	rule, ok := pointRules[mode]
	if !ok {
		return 0
	}
	p := distanceM / rule.per
	if p < rule.min {
		return rule.min
	}
	return p
}

// HistoryPoints scores seeded history without the live-journey floors.
func HistoryPoints(mode Mode, distanceM int) int {
	rule, ok := pointRules[mode]
	if !ok {
		return 0
	}
	return distanceM / rule.per
}

// Derive fills in the completion fields of j for a journey that ran until end.
func Derive(j Journey, end time.Time) Journey {
	km := DistanceKm(j.Mode, end.Sub(j.StartTime))
	j.Distance = int(math.Round(km * 1000))
	j.CarbonSaved = CarbonSaved(j.Mode, km)
	j.Points = Points(j.Mode, j.Distance)
	j.EndTime = &end
	j.Completed = true
	return j
}
