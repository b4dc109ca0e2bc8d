package journey

import "sort"

// EvaluateAchievements returns the ids of achievements whose condition holds
// for stats but which are not yet marked unlocked in stats.Achievements.
func EvaluateAchievements(stats UserStats) []string {
	unlocked := []string{}
	for _, rule := range achievementCatalog {
		if stats.Achievements[rule.ID].Unlocked {
			continue
		}
		if rule.met(stats) {
			unlocked = append(unlocked, rule.ID)
		}
	}
	sort.Strings(unlocked)
	return unlocked
}

// NewlyUnlocked lists achievements unlocked in after but not in before.
func NewlyUnlocked(before, after UserStats) []string {
	ids := []string{}
	for id, st := range after.Achievements {
		if st.Unlocked && !before.Achievements[id].Unlocked {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
