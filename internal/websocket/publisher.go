package websocket

import "github.com/rs/zerolog/log"

// EventPublisher is how services push ledger changes to connected clients
type EventPublisher interface {
	Publish(workspaceID int32, event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Publish broadcasts event to the workspace. Workspaces without open
// connections are skipped before the event is serialized.
func (h *Hub) Publish(workspaceID int32, event Event) {
	if h.ClientCount(workspaceID) == 0 {
		log.Debug().
			Int32("workspace_id", workspaceID).
			Str("event_type", event.Type).
			Msg("No subscribers for event")
		return
	}
	h.Broadcast(workspaceID, event)
}

// PublisherFunc adapts a function to EventPublisher
type PublisherFunc func(workspaceID int32, event Event)

// Publish calls f
func (f PublisherFunc) Publish(workspaceID int32, event Event) {
	f(workspaceID, event)
}
