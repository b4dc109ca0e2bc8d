package journey

import "time"

type Mode string

const (
	ModeWalking Mode = "walking"
	ModeBiking  Mode = "biking"
	ModeCar     Mode = "car"
	ModePublic  Mode = "public"
)

// Modes lists every transport mode in display order.
var Modes = []Mode{ModeWalking, ModeBiking, ModeCar, ModePublic}

func (m Mode) Valid() bool {
	switch m {
	case ModeWalking, ModeBiking, ModeCar, ModePublic:
		return true
	}
	return false
}

type Location struct {
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng  float64 `json:"lng" validate:"gte=-180,lte=180"`
	Name string  `json:"name,omitempty"`
}

type Journey struct {
	ID            string     `json:"id"`
	Mode          Mode       `json:"mode"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Distance      int        `json:"distance"` // meters
	CarbonSaved   float64    `json:"carbon_saved"`
	Points        int        `json:"points"`
	Completed     bool       `json:"completed"`
	StartLocation *Location  `json:"start_location,omitempty"`
	EndLocation   *Location  `json:"end_location,omitempty"`
}

type ModeTotals struct {
	Journeys int     `json:"journeys"`
	Distance float64 `json:"distance"`
}

type AchievementStatus struct {
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type UserStats struct {
	TotalDistance       float64                      `json:"total_distance"`
	TotalCarbonSaved    float64                      `json:"total_carbon_saved"`
	TotalPoints         int                          `json:"total_points"`
	Level               int                          `json:"level"`
	StreakDays          int                          `json:"streak_days"`
	ActiveDays          int                          `json:"active_days"`
	RedeemedRewards     []string                     `json:"redeemed_rewards"`
	Achievements        map[string]AchievementStatus `json:"achievements"`
	Modes               map[Mode]ModeTotals          `json:"modes"`
	ChallengesCompleted int                          `json:"challenges_completed"`
}

// Clone returns a deep copy so callers never share the engine's maps or slices.
func (s UserStats) Clone() UserStats {
	out := s
	out.RedeemedRewards = append([]string{}, s.RedeemedRewards...)
	out.Achievements = make(map[string]AchievementStatus, len(s.Achievements))
	for id, st := range s.Achievements {
		if st.UnlockedAt != nil {
			at := *st.UnlockedAt
			st.UnlockedAt = &at
		}
		out.Achievements[id] = st
	}
	out.Modes = make(map[Mode]ModeTotals, len(s.Modes))
	for m, t := range s.Modes {
		out.Modes[m] = t
	}
	return out
}

type Challenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Mode        Mode       `json:"mode"`
	Distance    float64    `json:"distance"` // target, meters
	Points      int        `json:"points"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
	Location    *Location  `json:"location,omitempty"`
}

type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PointsCost  int    `json:"points_cost"`
	Icon        string `json:"icon"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Completion is what EndJourney hands back for a completion summary.
type Completion struct {
	Journey  Journey   `json:"journey"`
	Stats    UserStats `json:"stats"`
	Unlocked []string  `json:"unlocked"`
}
