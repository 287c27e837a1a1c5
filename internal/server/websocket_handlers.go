package server

import (
	"context"

	"github.com/marinaua13/social-media-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler handles GET /api/ws, the push-only stream of the caller's
// notification events (post_liked, post_commented, user_followed, scheduled_post_created).
// The upgrade must carry an access token in ?token= or the Authorization header.
// @Summary Notification stream
// @Description WebSocket upgrade. Pushes post_liked, post_commented, user_followed and scheduled_post_created events.
// @Tags notifications
// @Produce json
// @Param token query string false "Access token"
// @Success 200
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		ctx := middleware.WithUserID(context.Background(), userID)
		if rid, ok := conn.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, middleware.RequestIDKey, rid)
		}
		s.hub.Serve(ctx, userID, conn)
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
