package server

import (
	"mosaic/internal/events"
	"mosaic/internal/notifications"
)

// buildPublisher fans domain events out to websocket clients and, when
// configured, to the external event stream.
func (s *Server) buildPublisher(external events.Publisher) events.Publisher {
	realtime := notifications.NewRealtimePublisher(s.notifier, s.hub)
	if external == nil {
		return realtime
	}
	return events.Multi{realtime, external}
}
