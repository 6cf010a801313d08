package manager

import "modelrepo/pkg/types"

// Event represents one manager lifecycle event: a poll's classification, a
// load/unload outcome, or a repository registration change.
type Event struct {
	Name    string
	ModelID types.ModelIdentifier
	OpID    string
	Fields  map[string]string
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
