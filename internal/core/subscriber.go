package core

// Subscriber receives session events. Slow subscribers lose events rather
// than stall the session.
type Subscriber struct {
	ID     string
	Events chan *Event
}

// NewSubscriber constructs a subscriber with a buffered event channel.
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{
		ID:     id,
		Events: make(chan *Event, 32),
	}
}

// Deliver sends ev without blocking. It reports whether the event was queued.
func (s *Subscriber) Deliver(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}
