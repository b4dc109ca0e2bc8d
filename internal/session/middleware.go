package session

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const LocalsKey = "session_id"

// Middleware validates the bearer session token and stores the session id in locals.
func Middleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session token")
		}
		sessionID, err := svc.Validate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals(LocalsKey, sessionID)
		return c.Next()
	}
}

// FromCtx returns the session id stored by Middleware.
func FromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsKey).(string)
	return id
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
