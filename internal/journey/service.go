package journey

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"backend-ecotrack/internal/ledger"
	"backend-ecotrack/internal/shared/geo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventRecorder persists engine events. *ledger.Recorder implements it.
type EventRecorder interface {
	Record(ctx context.Context, ev ledger.Event) (ledger.Event, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]ledger.Event, error)
}

// Broadcaster pushes encoded events to a session's listeners. *stream.Hub implements it.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID string, payload []byte)
}

// Service keeps one Engine per demo session and serialises access to each.
type Service struct {
	recorder     EventRecorder
	broadcaster  Broadcaster
	log          *zap.Logger
	mockJourneys int
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu     sync.Mutex
	engine *Engine
}

type ChallengeView struct {
	Challenge
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type RewardView struct {
	Reward
	Redeemed  int  `json:"redeemed"`
	CanAfford bool `json:"can_afford"`
}

type AchievementView struct {
	Achievement
	AchievementStatus
}

func NewService(recorder EventRecorder, broadcaster Broadcaster, log *zap.Logger, mockJourneys int) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if mockJourneys < 0 {
		mockJourneys = 0
	}
	return &Service{
		recorder:     recorder,
		broadcaster:  broadcaster,
		log:          log,
		mockJourneys: mockJourneys,
		now:          time.Now,
		sessions:     map[string]*sessionState{},
	}
}

// Open starts a session populated with mock history and challenges drawn
// from seed. A zero seed picks a random one; the seed used is returned.
func (s *Service) Open(ctx context.Context, seed uint64) (string, uint64) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	gen := NewMockGenerator(NewRandSource(seed), s.now)
	engine := NewEngine(
		WithClock(s.now),
		WithHistory(gen.Journeys(s.mockJourneys)),
		WithChallenges(gen.Challenges()),
	)

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionState{engine: engine}
	s.mu.Unlock()

	s.log.Info("session opened", zap.String("session_id", id), zap.Uint64("seed", seed))
	s.emit(ctx, id, ledger.KindSessionOpened, map[string]any{"seed": seed, "stats": engine.Stats()})
	return id, seed
}

func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.log.Info("session closed", zap.String("session_id", id))
	return nil
}

func (s *Service) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *Service) StartJourney(ctx context.Context, id string, mode Mode, from *Location) (Journey, error) {
	var out Journey
	err := s.mutate(ctx, id, ledger.KindJourneyStarted, func(e *Engine) (any, error) {
		j, err := e.StartJourney(mode, from)
		out = j
		return j, err
	})
	return out, err
}

func (s *Service) EndJourney(ctx context.Context, id string, to *Location) (Completion, error) {
	var out Completion
	err := s.mutate(ctx, id, ledger.KindJourneyEnded, func(e *Engine) (any, error) {
		c, err := e.EndJourney(to)
		out = c
		return c, err
	})
	return out, err
}

func (s *Service) IncrementStats(ctx context.Context, id string, points int, distance, carbonSaved float64) (UserStats, error) {
	var out UserStats
	err := s.mutate(ctx, id, ledger.KindStatsIncremented, func(e *Engine) (any, error) {
		stats, err := e.IncrementStats(points, distance, carbonSaved)
		out = stats
		return map[string]any{"points": points, "distance": distance, "carbon_saved": carbonSaved}, err
	})
	return out, err
}

func (s *Service) CompleteChallenge(ctx context.Context, id, challengeID string) (Challenge, UserStats, error) {
	var (
		challenge Challenge
		stats     UserStats
	)
	err := s.mutate(ctx, id, ledger.KindChallengeCompleted, func(e *Engine) (any, error) {
		var err error
		challenge, stats, err = e.CompleteChallenge(challengeID)
		return challenge, err
	})
	return challenge, stats, err
}

// RedeemReward debits the catalog price of rewardID.
func (s *Service) RedeemReward(ctx context.Context, id, rewardID string) (Reward, UserStats, error) {
	reward, err := FindReward(rewardID)
	if err != nil {
		return Reward{}, UserStats{}, err
	}
	var stats UserStats
	err = s.mutate(ctx, id, ledger.KindRewardRedeemed, func(e *Engine) (any, error) {
		var err error
		stats, err = e.RedeemReward(reward.ID, reward.PointsCost)
		return reward, err
	})
	return reward, stats, err
}

func (s *Service) ResetStats(ctx context.Context, id string) (UserStats, error) {
	var out UserStats
	err := s.mutate(ctx, id, ledger.KindStatsReset, func(e *Engine) (any, error) {
		out = e.ResetStats()
		return out, nil
	})
	return out, err
}

func (s *Service) Stats(id string) (UserStats, error) {
	var out UserStats
	err := s.read(id, func(e *Engine) { out = e.Stats() })
	return out, err
}

// ActiveJourney returns ErrNoActiveJourney when nothing is in progress.
func (s *Service) ActiveJourney(id string) (Journey, error) {
	var (
		out Journey
		ok  bool
	)
	if err := s.read(id, func(e *Engine) { out, ok = e.ActiveJourney() }); err != nil {
		return Journey{}, err
	}
	if !ok {
		return Journey{}, ErrNoActiveJourney
	}
	return out, nil
}

func (s *Service) Journeys(id string) ([]Journey, error) {
	var out []Journey
	err := s.read(id, func(e *Engine) { out = e.Journeys() })
	return out, err
}

// Challenges lists the session's challenges. With near set, only challenges
// that have a location are returned, nearest first, limited to radiusKm when
// it is positive.
func (s *Service) Challenges(id string, near *Location, radiusKm float64) ([]ChallengeView, error) {
	var challenges []Challenge
	if err := s.read(id, func(e *Engine) { challenges = e.Challenges() }); err != nil {
		return nil, err
	}

	views := make([]ChallengeView, 0, len(challenges))
	for _, c := range challenges {
		if near == nil {
			views = append(views, ChallengeView{Challenge: c})
			continue
		}
		if c.Location == nil {
			continue
		}
		d := geo.HaversineKm(near.Lat, near.Lng, c.Location.Lat, c.Location.Lng)
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		views = append(views, ChallengeView{Challenge: c, DistanceKm: &d})
	}
	if near != nil {
		sort.SliceStable(views, func(i, j int) bool {
			return *views[i].DistanceKm < *views[j].DistanceKm
		})
	}
	return views, nil
}

func (s *Service) Rewards(id string) ([]RewardView, error) {
	stats, err := s.Stats(id)
	if err != nil {
		return nil, err
	}
	redeemed := map[string]int{}
	for _, rid := range stats.RedeemedRewards {
		redeemed[rid]++
	}
	rewards := Rewards()
	views := make([]RewardView, 0, len(rewards))
	for _, r := range rewards {
		views = append(views, RewardView{
			Reward:    r,
			Redeemed:  redeemed[r.ID],
			CanAfford: stats.TotalPoints >= r.PointsCost,
		})
	}
	return views, nil
}

func (s *Service) Achievements(id string) ([]AchievementView, error) {
	stats, err := s.Stats(id)
	if err != nil {
		return nil, err
	}
	catalog := Achievements()
	views := make([]AchievementView, 0, len(catalog))
	for _, a := range catalog {
		views = append(views, AchievementView{Achievement: a, AchievementStatus: stats.Achievements[a.ID]})
	}
	return views, nil
}

// Events lists the session's recorded events, newest first.
func (s *Service) Events(ctx context.Context, id string, limit int) ([]ledger.Event, error) {
	if !s.Exists(id) {
		return nil, ErrSessionNotFound
	}
	if s.recorder == nil {
		return []ledger.Event{}, nil
	}
	return s.recorder.Recent(ctx, id, limit)
}

func (s *Service) lookup(id string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

func (s *Service) read(id string, fn func(*Engine)) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(st.engine)
	return nil
}

// mutate runs fn under the session lock and, when it succeeds, emits an
// event of kind carrying fn's payload plus one event per newly unlocked
// achievement.
func (s *Service) mutate(ctx context.Context, id string, kind ledger.Kind, fn func(*Engine) (any, error)) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	// events are emitted under the session lock so the ledger and the
	// stream see them in the order the state changed
	st.mu.Lock()
	defer st.mu.Unlock()
	before := st.engine.Stats()
	payload, err := fn(st.engine)
	if err != nil {
		return err
	}
	after := st.engine.Stats()

	s.emit(ctx, id, kind, payload)
	for _, aid := range NewlyUnlocked(before, after) {
		a, ok := findAchievement(aid)
		if !ok {
			continue
		}
		s.emit(ctx, id, ledger.KindAchievementUnlocked, AchievementView{Achievement: a, AchievementStatus: after.Achievements[aid]})
	}
	return nil
}

// emit records and broadcasts one event. Failures are logged only; the
// engine state has already changed.
func (s *Service) emit(ctx context.Context, sessionID string, kind ledger.Kind, payload any) {
	ev := ledger.Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if s.recorder != nil {
		recorded, err := s.recorder.Record(ctx, ev)
		if err != nil {
			s.log.Warn("record event failed", zap.String("session_id", sessionID), zap.String("kind", string(kind)), zap.Error(err))
		} else {
			ev = recorded
		}
	}

	if s.broadcaster == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("encode event", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.broadcaster.Broadcast(ctx, sessionID, msg)
}
