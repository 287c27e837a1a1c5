package server

import (
	"context"

	"github.com/marinaua13/social-media-api/internal/notifications"
)

// publishUserEvent pushes an event to userID's sockets. Delivery is best effort and
// is not cut short when the request context ends.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) {
	if s.hub == nil || userID == 0 {
		return
	}
	s.hub.Publish(context.WithoutCancel(ctx), userID, notifications.Event{
		Type:    eventType,
		Payload: payload,
	})
}
