package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes the event feed of a session over WebSocket.
// accept decides whether a session id may be subscribed to.
func RegisterRoutes(r fiber.Router, hub *Hub, accept func(sessionID string) bool) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})

	r.Get("/ws/:sessionID", func(c *fiber.Ctx) error {
		if accept != nil && !accept(c.Params("sessionID")) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("sessionID"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
