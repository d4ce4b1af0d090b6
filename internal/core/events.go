package core

import "time"

type EventType string

const (
	// Producer events
	EventContentChanged EventType = "content.changed"
	EventFileSaved      EventType = "file.saved"
	EventAgentMessage   EventType = "agent.message"
	EventManualTrigger  EventType = "manual.trigger"

	// Lifecycle events emitted by the runner
	EventAgentStarted   EventType = "agent.started"
	EventAgentCompleted EventType = "agent.completed"
	EventAgentFailed    EventType = "agent.failed"

	// Warning emitted when a cascade hits the depth limit
	EventCascadeLimit EventType = "cascade.limit"
)

// Event is an immutable fact appended to the log. ID is assigned on append
// and strictly increases. Routing fields (GraphID, FromAgent, ToAgent,
// CorrelationID, Tags, Path) are optional; Payload carries variant-specific
// data.
type Event struct {
	ID            int64          `json:"id"`
	Type          EventType      `json:"type"`
	GraphID       string         `json:"graph_id,omitempty"`
	FromAgent     string         `json:"from_agent,omitempty"`
	ToAgent       string         `json:"to_agent,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Path          string         `json:"path,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Trigger is the delivery of one event to one matched agent. Depth is the
// cascade level of the event: 0 for root events, one more than the emitting
// turn for everything a turn produces.
type Trigger struct {
	AgentID string `json:"agent_id"`
	EventID int64  `json:"event_id"`
	Depth   int    `json:"depth"`
	Event   Event  `json:"event"`
}
