package journey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-ecotrack/internal/session"

	"github.com/gofiber/fiber/v2"
)

type apiClient struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	clock := newFakeClock()
	svc := NewService(nil, nil, nil, 2)
	svc.now = clock.Now
	tokens := session.NewService("test-secret", time.Hour)

	app := fiber.New()
	RegisterRoutes(app, svc, tokens, session.Middleware(tokens))
	return &apiClient{t: t, app: app}
}

func (a *apiClient) do(method, path string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.app.Test(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *apiClient) expectError(method, path string, body any, status int, code string) {
	a.t.Helper()
	var e errorBody
	got := a.do(method, path, body, &e)
	if got != status || e.Code != code {
		a.t.Fatalf("%s %s: got %d %q, want %d %q", method, path, got, e.Code, status, code)
	}
}

func (a *apiClient) openSession(seed uint64) string {
	a.t.Helper()
	var resp struct {
		SessionID string    `json:"session_id"`
		Token     string    `json:"token"`
		Seed      uint64    `json:"seed"`
		Stats     UserStats `json:"stats"`
	}
	if status := a.do(http.MethodPost, "/sessions", map[string]uint64{"seed": seed}, &resp); status != http.StatusCreated {
		a.t.Fatalf("open session status %d", status)
	}
	if resp.Token == "" || resp.SessionID == "" || resp.Seed != seed {
		a.t.Fatalf("unexpected session response %+v", resp)
	}
	if resp.Stats.TotalPoints != 450 {
		a.t.Fatalf("expected seed stats, got %+v", resp.Stats)
	}
	a.token = resp.Token
	return resp.SessionID
}

func TestHandlersRequireSessionToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/stats", "/journeys", "/challenges", "/rewards", "/achievements", "/events"} {
		if status := api.do(http.MethodGet, path, nil, nil); status != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: expected 401, got %d", path, status)
		}
	}
}

func TestHandlersJourneyFlow(t *testing.T) {
	api := newTestAPI(t)
	api.openSession(21)

	api.expectError(http.MethodPost, "/journeys", map[string]string{"mode": "teleport"}, http.StatusBadRequest, "invalid_mode")
	api.expectError(http.MethodGet, "/journeys/active", nil, http.StatusNotFound, "no_active_journey")
	api.expectError(http.MethodPost, "/journeys/active/end", nil, http.StatusConflict, "no_active_journey")

	var started Journey
	body := map[string]any{"mode": "walking", "start_location": map[string]any{"lat": 40.7128, "lng": -74.006}}
	if status := api.do(http.MethodPost, "/journeys", body, &started); status != http.StatusCreated {
		t.Fatalf("start status %d", status)
	}
	if started.Mode != ModeWalking || started.StartLocation == nil {
		t.Fatalf("unexpected journey %+v", started)
	}
	api.expectError(http.MethodPost, "/journeys", map[string]string{"mode": "biking"}, http.StatusConflict, "journey_already_active")

	var active Journey
	if status := api.do(http.MethodGet, "/journeys/active", nil, &active); status != http.StatusOK || active.ID != started.ID {
		t.Fatalf("active status %d id %s", status, active.ID)
	}

	var done Completion
	if status := api.do(http.MethodPost, "/journeys/active/end", nil, &done); status != http.StatusOK {
		t.Fatalf("end status %d", status)
	}
	// the fake clock never advances, so only the walking floor applies
	if !done.Journey.Completed || done.Journey.Distance != 0 || done.Journey.Points != 5 {
		t.Fatalf("unexpected completion %+v", done.Journey)
	}
	if done.Stats.TotalPoints != 455 {
		t.Fatalf("expected 455 points, got %d", done.Stats.TotalPoints)
	}

	var journeys []Journey
	if status := api.do(http.MethodGet, "/journeys", nil, &journeys); status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	if len(journeys) != 3 || journeys[0].ID != started.ID {
		t.Fatalf("expected new journey first of 3, got %d", len(journeys))
	}
}

func TestHandlersBadLocation(t *testing.T) {
	api := newTestAPI(t)
	api.openSession(3)

	body := map[string]any{"mode": "walking", "start_location": map[string]any{"lat": 120.0, "lng": 0}}
	if status := api.do(http.MethodPost, "/journeys", body, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range latitude, got %d", status)
	}
}

func TestHandlersStats(t *testing.T) {
	api := newTestAPI(t)
	api.openSession(4)

	api.expectError(http.MethodPost, "/stats/increment", map[string]any{"points": -1}, http.StatusBadRequest, "invalid_stats_delta")

	api.expectError(http.MethodPost, "/stats/increment", map[string]any{"distance": 1.7e308}, http.StatusBadRequest, "invalid_stats_delta")
	api.expectError(http.MethodPost, "/stats/increment", map[string]any{"points": 1000001}, http.StatusBadRequest, "invalid_stats_delta")

	var stats UserStats
	if status := api.do(http.MethodPost, "/stats/increment", map[string]any{"points": 60, "distance": 1500, "carbon_saved": 0.2}, &stats); status != http.StatusOK {
		t.Fatalf("increment status %d", status)
	}
	if stats.TotalPoints != 510 || stats.Level != 2 || !stats.Achievements["eco-badge"].Unlocked {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if status := api.do(http.MethodPost, "/stats/reset", nil, &stats); status != http.StatusOK {
		t.Fatalf("reset status %d", status)
	}
	if stats.TotalPoints != 450 || stats.Achievements["eco-badge"].Unlocked {
		t.Fatalf("expected seed stats after reset, got %+v", stats)
	}

	if status := api.do(http.MethodGet, "/stats", nil, &stats); status != http.StatusOK || stats.TotalPoints != 450 {
		t.Fatalf("get stats status %d", status)
	}
}

func TestHandlersChallengesAndRewards(t *testing.T) {
	api := newTestAPI(t)
	api.openSession(5)

	api.expectError(http.MethodPost, "/challenges/nope/complete", nil, http.StatusNotFound, "challenge_not_found")

	var completed struct {
		Challenge Challenge `json:"challenge"`
		Stats     UserStats `json:"stats"`
	}
	if status := api.do(http.MethodPost, "/challenges/challenge-walk-0/complete", nil, &completed); status != http.StatusOK {
		t.Fatalf("complete status %d", status)
	}
	if !completed.Challenge.Completed || completed.Stats.TotalPoints != 500 {
		t.Fatalf("unexpected completion %+v", completed)
	}
	api.expectError(http.MethodPost, "/challenges/challenge-walk-0/complete", nil, http.StatusConflict, "challenge_already_completed")

	var nearby []ChallengeView
	if status := api.do(http.MethodGet, "/challenges?lat=40.7193&lng=-74.0020&radius_km=0.1", nil, &nearby); status != http.StatusOK {
		t.Fatalf("nearby status %d", status)
	}
	if len(nearby) != 1 || nearby[0].DistanceKm == nil {
		t.Fatalf("expected one nearby challenge, got %d", len(nearby))
	}
	if status := api.do(http.MethodGet, "/challenges?lat=40.7", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for lat without lng, got %d", status)
	}

	api.expectError(http.MethodPost, "/rewards/gift-card/redeem", nil, http.StatusNotFound, "reward_not_found")

	var redeemed struct {
		Reward Reward    `json:"reward"`
		Stats  UserStats `json:"stats"`
	}
	if status := api.do(http.MethodPost, "/rewards/bike-repair/redeem", nil, &redeemed); status != http.StatusOK {
		t.Fatalf("redeem status %d", status)
	}
	if redeemed.Stats.TotalPoints != 150 {
		t.Fatalf("expected 150 points left, got %d", redeemed.Stats.TotalPoints)
	}
	api.expectError(http.MethodPost, "/rewards/organic-grocery/redeem", nil, http.StatusUnprocessableEntity, "insufficient_points")

	var rewards []RewardView
	if status := api.do(http.MethodGet, "/rewards", nil, &rewards); status != http.StatusOK || len(rewards) != 3 {
		t.Fatalf("rewards status %d len %d", status, len(rewards))
	}
	if rewards[0].CanAfford || rewards[1].Redeemed != 1 {
		t.Fatalf("unexpected reward views %+v", rewards)
	}

	var achievements []AchievementView
	if status := api.do(http.MethodGet, "/achievements", nil, &achievements); status != http.StatusOK || len(achievements) != 5 {
		t.Fatalf("achievements status %d len %d", status, len(achievements))
	}

	var events []json.RawMessage
	if status := api.do(http.MethodGet, "/events", nil, &events); status != http.StatusOK || len(events) != 0 {
		t.Fatalf("events status %d len %d", status, len(events))
	}
}

func TestHandlersCloseSession(t *testing.T) {
	api := newTestAPI(t)
	api.openSession(6)

	if status := api.do(http.MethodDelete, "/sessions", nil, nil); status != http.StatusNoContent {
		t.Fatalf("close status %d", status)
	}
	api.expectError(http.MethodGet, "/stats", nil, http.StatusNotFound, "session_not_found")
}

func TestStatusCodeAndErrorCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInvalidMode, http.StatusBadRequest, "invalid_mode"},
		{ErrInvalidStatsDelta, http.StatusBadRequest, "invalid_stats_delta"},
		{ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{ErrChallengeNotFound, http.StatusNotFound, "challenge_not_found"},
		{ErrRewardNotFound, http.StatusNotFound, "reward_not_found"},
		{ErrJourneyAlreadyActive, http.StatusConflict, "journey_already_active"},
		{ErrNoActiveJourney, http.StatusConflict, "no_active_journey"},
		{ErrChallengeAlreadyCompleted, http.StatusConflict, "challenge_already_completed"},
		{ErrInsufficientPoints, http.StatusUnprocessableEntity, "insufficient_points"},
		{fmt.Errorf("wrapped: %w", ErrInsufficientPoints), http.StatusUnprocessableEntity, "insufficient_points"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.status {
			t.Fatalf("StatusCode(%v) = %d, want %d", tc.err, got, tc.status)
		}
		if got := ErrorCode(tc.err); got != tc.code {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.code)
		}
	}
}
