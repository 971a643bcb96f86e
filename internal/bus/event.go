package bus

import "time"

// Event represents a domain event published on the bus. Session carries the
// id of the session the event belongs to; empty for daemon-wide events.
type Event struct {
	Kind      string
	Session   string
	Timestamp time.Time
	Payload   any
}
