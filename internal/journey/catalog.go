package journey

// achievementRule reports whether stats satisfy an achievement's condition.
type achievementRule struct {
	Achievement
	met func(UserStats) bool
}

var achievementCatalog = []achievementRule{
	{
		Achievement: Achievement{ID: "eco-badge", Title: "Eco Pioneer Badge", Description: "Reach level 2", Icon: "🌱"},
		met:         func(s UserStats) bool { return s.Level >= 2 },
	},
	{
		Achievement: Achievement{ID: "carbon-hero", Title: "Carbon Hero", Description: "Save 10kg of CO₂", Icon: "🌿"},
		met:         func(s UserStats) bool { return s.TotalCarbonSaved >= 10 },
	},
	{
		Achievement: Achievement{ID: "marathon-walker", Title: "Marathon Walker", Description: "Walk a total of 10km", Icon: "🚶"},
		met:         func(s UserStats) bool { return s.Modes[ModeWalking].Distance >= 10000 },
	},
	{
		Achievement: Achievement{ID: "bike-enthusiast", Title: "Bike Enthusiast", Description: "Complete 5 biking journeys", Icon: "🚲"},
		met:         func(s UserStats) bool { return s.Modes[ModeBiking].Journeys >= 5 },
	},
	{
		Achievement: Achievement{ID: "challenge-champion", Title: "Challenge Champion", Description: "Complete 3 challenges", Icon: "🏆"},
		met:         func(s UserStats) bool { return s.ChallengesCompleted >= 3 },
	},
}

var rewardCatalog = []Reward{
	{ID: "eco-coffee", Title: "20% Off at Eco Coffee", Description: "Good for one eco-friendly coffee", PointsCost: 200, Icon: "☕"},
	{ID: "bike-repair", Title: "Free Bike Check-up", Description: "At City Bikes shop downtown", PointsCost: 350, Icon: "🛠️"},
	{ID: "organic-grocery", Title: "15% Off Organic Groceries", Description: "At Green Basket Market", PointsCost: 500, Icon: "🥕"},
}

func Achievements() []Achievement {
	out := make([]Achievement, 0, len(achievementCatalog))
	for _, r := range achievementCatalog {
		out = append(out, r.Achievement)
	}
	return out
}

func Rewards() []Reward {
	return append([]Reward{}, rewardCatalog...)
}

func FindReward(id string) (Reward, error) {
	for _, r := range rewardCatalog {
		if r.ID == id {
			return r, nil
		}
	}
	return Reward{}, ErrRewardNotFound
}

// SeedStats is the state a fresh session starts from and ResetStats restores.
func SeedStats() UserStats {
	stats := UserStats{
		TotalDistance:    24500,
		TotalCarbonSaved: 2.94,
		TotalPoints:      450,
		StreakDays:       3,
		ActiveDays:       12,
		RedeemedRewards:  []string{},
		Achievements:     make(map[string]AchievementStatus, len(achievementCatalog)),
		Modes:            make(map[Mode]ModeTotals, len(Modes)),
	}
	stats.Level = Level(stats.TotalPoints)
	for _, r := range achievementCatalog {
		stats.Achievements[r.ID] = AchievementStatus{}
	}
	return stats
}

func findAchievement(id string) (Achievement, bool) {
	for _, r := range achievementCatalog {
		if r.ID == id {
			return r.Achievement, true
		}
	}
	return Achievement{}, false
}
