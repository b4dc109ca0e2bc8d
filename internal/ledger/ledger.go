package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend-ecotrack/internal/db"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSessionOpened       Kind = "session_opened"
	KindJourneyStarted      Kind = "journey_started"
	KindJourneyEnded        Kind = "journey_ended"
	KindStatsIncremented    Kind = "stats_incremented"
	KindChallengeCompleted  Kind = "challenge_completed"
	KindRewardRedeemed      Kind = "reward_redeemed"
	KindAchievementUnlocked Kind = "achievement_unlocked"
	KindStatsReset          Kind = "stats_reset"
)

// Event is one engine state change. Payload is whatever the operation
// returned and is stored as JSON.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder appends events to the journey_events table. A Recorder without a
// database accepts and drops every event.
type Recorder struct {
	db db.Querier
}

func NewRecorder(q db.Querier) *Recorder {
	return &Recorder{db: q}
}

func (r *Recorder) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if r.db == nil {
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now()
		}
		return ev, nil
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", ev.Kind, err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO journey_events (id, session_id, kind, payload)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, ev.ID, ev.SessionID, string(ev.Kind), payload)
	if err := row.Scan(&ev.CreatedAt); err != nil {
		return Event{}, fmt.Errorf("insert %s event: %w", ev.Kind, err)
	}
	return ev, nil
}

// Recent returns the latest events of a session, newest first.
func (r *Recorder) Recent(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if r.db == nil {
		return []Event{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, kind, payload, created_at
		FROM journey_events WHERE session_id=$1
		ORDER BY seq DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev      Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &kind, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = Kind(kind)
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}
