package journey

import (
	"errors"

	"backend-ecotrack/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type openSessionRequest struct {
	Seed uint64 `json:"seed"`
}

type startJourneyRequest struct {
	Mode          Mode      `json:"mode" validate:"required,oneof=walking biking car public"`
	StartLocation *Location `json:"start_location" validate:"omitempty"`
}

type endJourneyRequest struct {
	EndLocation *Location `json:"end_location" validate:"omitempty"`
}

// incrementRequest caps a single increment at 1M points, 10,000 km and 10 t CO2.
type incrementRequest struct {
	Points      int     `json:"points" validate:"gte=0,lte=1000000"`
	Distance    float64 `json:"distance" validate:"gte=0,lte=10000000"`
	CarbonSaved float64 `json:"carbon_saved" validate:"gte=0,lte=10000"`
}

type nearbyQuery struct {
	Lat      *float64 `query:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng      *float64 `query:"lng" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm float64  `query:"radius_km" validate:"gte=0"`
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RegisterRoutes mounts the session and engine routes. Every route except
// POST /sessions needs the session middleware.
func RegisterRoutes(r fiber.Router, svc *Service, tokens *session.Service, sessionMiddleware fiber.Handler) {
	r.Post("/sessions", func(c *fiber.Ctx) error {
		var req openSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
			}
		}
		id, seed := svc.Open(c.Context(), req.Seed)
		token, err := tokens.Issue(id)
		if err != nil {
			_ = svc.Close(id)
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		stats, err := svc.Stats(id)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"session_id": id,
			"token":      token.Token,
			"token_type": token.TokenType,
			"expires_at": token.ExpiresAt,
			"seed":       seed,
			"stats":      stats,
		})
	})

	r.Delete("/sessions", sessionMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Close(session.FromCtx(c)); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/journeys", sessionMiddleware, func(c *fiber.Ctx) error {
		var req startJourneyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if !req.Mode.Valid() {
			return writeError(c, ErrInvalidMode)
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		j, err := svc.StartJourney(c.Context(), session.FromCtx(c), req.Mode, req.StartLocation)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(j)
	})

	r.Get("/journeys", sessionMiddleware, func(c *fiber.Ctx) error {
		journeys, err := svc.Journeys(session.FromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(journeys)
	})

	r.Get("/journeys/active", sessionMiddleware, func(c *fiber.Ctx) error {
		j, err := svc.ActiveJourney(session.FromCtx(c))
		if err != nil {
			if errors.Is(err, ErrNoActiveJourney) {
				return c.Status(fiber.StatusNotFound).JSON(errorBody{Code: ErrorCode(err), Error: err.Error()})
			}
			return writeError(c, err)
		}
		return c.JSON(j)
	})

	r.Post("/journeys/active/end", sessionMiddleware, func(c *fiber.Ctx) error {
		var req endJourneyRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		completion, err := svc.EndJourney(c.Context(), session.FromCtx(c), req.EndLocation)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(completion)
	})

	r.Get("/stats", sessionMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.Stats(session.FromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(stats)
	})

	r.Post("/stats/increment", sessionMiddleware, func(c *fiber.Ctx) error {
		var req incrementRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, ErrInvalidStatsDelta)
		}
		stats, err := svc.IncrementStats(c.Context(), session.FromCtx(c), req.Points, req.Distance, req.CarbonSaved)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(stats)
	})

	r.Post("/stats/reset", sessionMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.ResetStats(c.Context(), session.FromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(stats)
	})

	r.Get("/challenges", sessionMiddleware, func(c *fiber.Ctx) error {
		var q nearbyQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid query")
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if (q.Lat == nil) != (q.Lng == nil) {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng must be given together")
		}
		var near *Location
		if q.Lat != nil {
			near = &Location{Lat: *q.Lat, Lng: *q.Lng}
		}
		challenges, err := svc.Challenges(session.FromCtx(c), near, q.RadiusKm)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(challenges)
	})

	r.Post("/challenges/:id/complete", sessionMiddleware, func(c *fiber.Ctx) error {
		challenge, stats, err := svc.CompleteChallenge(c.Context(), session.FromCtx(c), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"challenge": challenge, "stats": stats})
	})

	r.Get("/rewards", sessionMiddleware, func(c *fiber.Ctx) error {
		rewards, err := svc.Rewards(session.FromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(rewards)
	})

	r.Post("/rewards/:id/redeem", sessionMiddleware, func(c *fiber.Ctx) error {
		reward, stats, err := svc.RedeemReward(c.Context(), session.FromCtx(c), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"reward": reward, "stats": stats})
	})

	r.Get("/achievements", sessionMiddleware, func(c *fiber.Ctx) error {
		achievements, err := svc.Achievements(session.FromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(achievements)
	})

	r.Get("/events", sessionMiddleware, func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
		}
		events, err := svc.Events(c.Context(), session.FromCtx(c), limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(events)
	})
}

func writeError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status == fiber.StatusInternalServerError {
		return fiber.NewError(status, err.Error())
	}
	return c.Status(status).JSON(errorBody{Code: ErrorCode(err), Error: err.Error()})
}

// StatusCode maps engine errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidStatsDelta):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrChallengeNotFound), errors.Is(err, ErrRewardNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrJourneyAlreadyActive), errors.Is(err, ErrNoActiveJourney), errors.Is(err, ErrChallengeAlreadyCompleted):
		return fiber.StatusConflict
	case errors.Is(err, ErrInsufficientPoints):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}
