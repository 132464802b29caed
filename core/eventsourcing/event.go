// Package eventsourcing provides the aggregate machinery shared by every
// event-sourced entity in the credit core: the Event/EventEnvelope shapes,
// the generic Idempotent[R] mutator result, and the concurrency-retry
// helper. Grounded on the teacher's core/events package (an EventType()
// string plus a structured payload) generalised from chain-transaction
// events to domain aggregate events.
package eventsourcing

import "time"

// Event is implemented by every payload type emitted by an aggregate.
// EventType is stable across releases — it is the discriminant persisted
// alongside the JSON payload and is what outbox subscribers switch on.
type Event interface {
	EventType() string
}

// EventEnvelope wraps a persisted event with its position in the
// aggregate's log and the instant it was recorded. Sequence numbers start
// at 1 and are contiguous per aggregate id (spec.md §6, "event records
// carry a sequence number, recorded-at instant, and JSON-tagged payload").
type EventEnvelope struct {
	Sequence    uint64
	RecordedAt  time.Time
	Payload     Event
}

// EventType returns the discriminant of the wrapped payload.
func (e EventEnvelope) EventType() string { return e.Payload.EventType() }

// Aggregate is implemented by every entity that replays from an event log.
// Replay must be total on any prefix ever persisted (spec.md §4.1).
type Aggregate[T any] interface {
	Apply(e Event)
	*T
}

// Replay folds an ordered sequence of envelopes into a fresh *T using Apply.
// It is a pure function: two replays of the same events yield equal state
// (spec.md §8).
func Replay[T any, PT Aggregate[T]](events []EventEnvelope) PT {
	var zero T
	entity := PT(&zero)
	for _, e := range events {
		entity.Apply(e.Payload)
	}
	return entity
}
