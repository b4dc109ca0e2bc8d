package journey

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

// RandSource is the randomness the mock generator draws from. *rand.Rand
// satisfies it; tests can pass a scripted source.
type RandSource interface {
	IntN(n int) int
	Float64() float64
}

// NewRandSource returns a deterministic source for seed.
func NewRandSource(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

var mockCenter = Location{Lat: 40.7128, Lng: -74.0060}

var mockPlaces = []Location{
	{Name: "McDonald's", Lat: 40.7143, Lng: -74.0070},
	{Name: "Local Park", Lat: 40.7193, Lng: -74.0020},
	{Name: "Grocery Store", Lat: 40.7120, Lng: -74.0050},
	{Name: "Library", Lat: 40.7140, Lng: -74.0100},
	{Name: "Farmer's Market", Lat: 40.7160, Lng: -73.9990},
}

// MockGenerator builds the demo data a session starts with.
type MockGenerator struct {
	rng RandSource
	now func() time.Time
}

func NewMockGenerator(rng RandSource, now func() time.Time) *MockGenerator {
	if now == nil {
		now = time.Now
	}
	return &MockGenerator{rng: rng, now: now}
}

// Journeys returns n completed journeys from the last week, most recent first.
func (g *MockGenerator) Journeys(n int) []Journey {
	modes := []Mode{ModeWalking, ModeBiking, ModeCar}
	now := g.now()
	journeys := make([]Journey, 0, n)

	for i := 0; i < n; i++ {
		daysAgo := g.rng.IntN(7)
		mode := modes[g.rng.IntN(len(modes))]
		distance := g.rng.IntN(5000) + 500

		day := now.AddDate(0, 0, -daysAgo)
		start := time.Date(day.Year(), day.Month(), day.Day(), g.rng.IntN(10)+8, g.rng.IntN(60), 0, 0, day.Location())
		end := start.Add(time.Duration(mockDurationMinutes(mode, distance)) * time.Minute)

		journeys = append(journeys, Journey{
			ID:            fmt.Sprintf("journey-mock-%d", i),
			Mode:          mode,
			StartTime:     start,
			EndTime:       &end,
			Distance:      distance,
			CarbonSaved:   CarbonSaved(mode, float64(distance)/1000),
			Points:        HistoryPoints(mode, distance),
			Completed:     true,
			StartLocation: g.jitter(mockCenter),
			EndLocation:   g.jitter(mockCenter),
		})
	}

	sort.SliceStable(journeys, func(i, j int) bool {
		return journeys[i].StartTime.After(journeys[j].StartTime)
	})
	return journeys
}

// Challenges returns the location-tied challenges for the mock places.
func (g *MockGenerator) Challenges() []Challenge {
	var challenges []Challenge
	for i, place := range mockPlaces {
		loc := place
		challenges = append(challenges, Challenge{
			ID:          fmt.Sprintf("challenge-walk-%d", i),
			Title:       "Walk to " + place.Name,
			Description: fmt.Sprintf("Take a refreshing walk to %s and enjoy the fresh air.", place.Name),
			Mode:        ModeWalking,
			Distance:    800 + g.rng.Float64()*400,
			Points:      50,
			Location:    &loc,
		})

		if i%2 == 0 {
			loc := place
			challenges = append(challenges, Challenge{
				ID:          fmt.Sprintf("challenge-bike-%d", i),
				Title:       "Bike to " + place.Name,
				Description: fmt.Sprintf("Cycle to %s and reduce your carbon footprint.", place.Name),
				Mode:        ModeBiking,
				Distance:    1200 + g.rng.Float64()*800,
				Points:      75,
				Location:    &loc,
			})
		}

		if i%3 == 0 {
			loc := place
			challenges = append(challenges, Challenge{
				ID:          fmt.Sprintf("challenge-public-%d", i),
				Title:       "Use public transport to " + place.Name,
				Description: fmt.Sprintf("Take a bus or train to %s instead of driving.", place.Name),
				Mode:        ModePublic,
				Distance:    2000 + g.rng.Float64()*1000,
				Points:      40,
				Location:    &loc,
			})
		}
	}
	return challenges
}

func (g *MockGenerator) jitter(center Location) *Location {
	return &Location{
		Lat: center.Lat + (g.rng.Float64()*0.02 - 0.01),
		Lng: center.Lng + (g.rng.Float64()*0.02 - 0.01),
	}
}

// mockDurationMinutes mirrors typical speeds: ~5 km/h walking, ~13 km/h
// biking, ~30 km/h otherwise, with a five minute minimum.
func mockDurationMinutes(mode Mode, distanceM int) int {
	var minutes float64
	switch mode {
	case ModeWalking:
		minutes = float64(distanceM) / 80
	case ModeBiking:
		minutes = float64(distanceM) / 220
	default:
		minutes = float64(distanceM) / 500
	}
	return int(math.Max(5, math.Ceil(minutes)))
}
