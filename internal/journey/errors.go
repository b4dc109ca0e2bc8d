package journey

import "errors"

var (
	ErrJourneyAlreadyActive      = errors.New("journey already in progress")
	ErrNoActiveJourney           = errors.New("no active journey")
	ErrChallengeNotFound         = errors.New("challenge not found")
	ErrChallengeAlreadyCompleted = errors.New("challenge already completed")
	ErrInsufficientPoints        = errors.New("insufficient points")
	ErrInvalidStatsDelta         = errors.New("stats delta must be non-negative")
	ErrInvalidMode               = errors.New("invalid transport mode")
	ErrRewardNotFound            = errors.New("reward not found")
	ErrSessionNotFound           = errors.New("session not found")
)

var errorCodes = map[error]string{
	ErrJourneyAlreadyActive:      "journey_already_active",
	ErrNoActiveJourney:           "no_active_journey",
	ErrChallengeNotFound:         "challenge_not_found",
	ErrChallengeAlreadyCompleted: "challenge_already_completed",
	ErrInsufficientPoints:        "insufficient_points",
	ErrInvalidStatsDelta:         "invalid_stats_delta",
	ErrInvalidMode:               "invalid_mode",
	ErrRewardNotFound:            "reward_not_found",
	ErrSessionNotFound:           "session_not_found",
}

// ErrorCode returns a stable machine-readable code for err, or "internal".
func ErrorCode(err error) string {
	for target, code := range errorCodes {
		if errors.Is(err, target) {
			return code
		}
	}
	return "internal"
}
