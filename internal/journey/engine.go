package journey

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Engine owns one session's journey state: the active journey, the journey
// log, user stats and challenges. It is not safe for concurrent use; callers
// that share an Engine must serialise access.
//
// Every mutating method either succeeds or returns an error and leaves the
// state untouched.
type Engine struct {
	now   func() time.Time
	newID func() string

	active     *Journey
	journeys   []Journey // most recent first
	challenges []Challenge
	seed       UserStats
	stats      UserStats
}

type Option func(*Engine)

// WithClock replaces time.Now, mainly so tests can advance simulated time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithHistory seeds the journey log. The slice is expected most recent first.
func WithHistory(journeys []Journey) Option {
	return func(e *Engine) { e.journeys = append([]Journey{}, journeys...) }
}

func WithChallenges(challenges []Challenge) Option {
	return func(e *Engine) { e.challenges = append([]Challenge{}, challenges...) }
}

// WithSeedStats sets the initial stats, also used by ResetStats.
func WithSeedStats(stats UserStats) Option {
	return func(e *Engine) { e.seed = stats.Clone() }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
		seed:  SeedStats(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.seed.Level = Level(e.seed.TotalPoints)
	e.stats = e.seed.Clone()
	return e
}

func (e *Engine) StartJourney(mode Mode, from *Location) (Journey, error) {
	if !mode.Valid() {
		return Journey{}, ErrInvalidMode
	}
	if e.active != nil {
		return Journey{}, ErrJourneyAlreadyActive
	}

	j := Journey{
		ID:            e.newID(),
		Mode:          mode,
		StartTime:     e.now(),
		StartLocation: copyLocation(from),
	}
	e.active = &j
	return j, nil
}

// EndJourney completes the active journey from the time elapsed since it started.
func (e *Engine) EndJourney(to *Location) (Completion, error) {
	if e.active == nil {
		return Completion{}, ErrNoActiveJourney
	}

	done := Derive(*e.active, e.now())
	done.EndLocation = copyLocation(to)
	if !e.fits(done.Points, float64(done.Distance), done.CarbonSaved) {
		return Completion{}, ErrInvalidStatsDelta
	}

	e.journeys = append([]Journey{done}, e.journeys...)
	e.active = nil
	e.applyDelta(done.Points, float64(done.Distance), done.CarbonSaved)

	totals := e.stats.Modes[done.Mode]
	totals.Journeys++
	totals.Distance += float64(done.Distance)
	e.stats.Modes[done.Mode] = totals

	unlocked := e.unlockAchievements()
	return Completion{
		Journey:  done,
		Stats:    e.stats.Clone(),
		Unlocked: unlocked,
	}, nil
}

// IncrementStats folds non-negative deltas into the running totals.
func (e *Engine) IncrementStats(points int, distance, carbonSaved float64) (UserStats, error) {
	if points < 0 || !validDelta(distance) || !validDelta(carbonSaved) {
		return UserStats{}, ErrInvalidStatsDelta
	}
	if !e.fits(points, distance, carbonSaved) {
		return UserStats{}, ErrInvalidStatsDelta
	}
	e.applyDelta(points, distance, carbonSaved)
	e.unlockAchievements()
	return e.stats.Clone(), nil
}

// CompleteChallenge credits a challenge's points once.
func (e *Engine) CompleteChallenge(id string) (Challenge, UserStats, error) {
	idx := -1
	for i := range e.challenges {
		if e.challenges[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Challenge{}, UserStats{}, ErrChallengeNotFound
	}
	if e.challenges[idx].Completed {
		return Challenge{}, UserStats{}, ErrChallengeAlreadyCompleted
	}
	if !e.fits(e.challenges[idx].Points, 0, 0) {
		return Challenge{}, UserStats{}, ErrInvalidStatsDelta
	}

	e.challenges[idx].Completed = true
	e.applyDelta(e.challenges[idx].Points, 0, 0)
	e.stats.ChallengesCompleted++
	e.unlockAchievements()
	return e.challenges[idx], e.stats.Clone(), nil
}

// RedeemReward debits pointsCost. Redeeming the same reward again is allowed.
func (e *Engine) RedeemReward(rewardID string, pointsCost int) (UserStats, error) {
	if pointsCost < 0 {
		return UserStats{}, ErrInvalidStatsDelta
	}
	if e.stats.TotalPoints < pointsCost {
		return UserStats{}, ErrInsufficientPoints
	}

	e.stats.TotalPoints -= pointsCost
	e.stats.Level = Level(e.stats.TotalPoints)
	e.stats.RedeemedRewards = append(e.stats.RedeemedRewards, rewardID)
	e.unlockAchievements()
	return e.stats.Clone(), nil
}

func (e *Engine) ResetStats() UserStats {
	e.stats = e.seed.Clone()
	e.unlockAchievements()
	return e.stats.Clone()
}

func (e *Engine) Stats() UserStats {
	return e.stats.Clone()
}

func (e *Engine) ActiveJourney() (Journey, bool) {
	if e.active == nil {
		return Journey{}, false
	}
	return *e.active, true
}

func (e *Engine) Journeys() []Journey {
	return append([]Journey{}, e.journeys...)
}

func (e *Engine) Challenges() []Challenge {
	return append([]Challenge{}, e.challenges...)
}

func (e *Engine) applyDelta(points int, distance, carbonSaved float64) {
	e.stats.TotalPoints += points
	e.stats.TotalDistance += distance
	e.stats.TotalCarbonSaved += carbonSaved
	e.stats.Level = Level(e.stats.TotalPoints)
}

func (e *Engine) unlockAchievements() []string {
	ids := EvaluateAchievements(e.stats)
	if len(ids) == 0 {
		return ids
	}
	at := e.now()
	for _, id := range ids {
		unlockedAt := at
		e.stats.Achievements[id] = AchievementStatus{Unlocked: true, UnlockedAt: &unlockedAt}
	}
	return ids
}

// fits reports whether adding the deltas keeps every total finite and
// TotalPoints within int range.
func (e *Engine) fits(points int, distance, carbonSaved float64) bool {
	if points > math.MaxInt-e.stats.TotalPoints {
		return false
	}
	return finite(e.stats.TotalDistance+distance) && finite(e.stats.TotalCarbonSaved+carbonSaved)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validDelta(v float64) bool {
	return v >= 0 && finite(v)
}

func copyLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
