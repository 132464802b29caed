package accounting

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/ids"
)

// DecodeEvent turns a persisted (event type, payload) pair back into one of
// this package's typed events.
func DecodeEvent(eventType string, raw []byte) (eventsourcing.Event, error) {
	var target eventsourcing.Event
	switch eventType {
	case TypeOpened:
		target = &Opened{}
	case TypeNodeCreated:
		target = &NodeCreated{}
	case TypeManualAccountGranted:
		target = &ManualAccountGranted{}
	case TypePeriodClosed:
		target = &PeriodClosed{}
	default:
		return nil, fmt.Errorf("accounting: unknown event type %q", eventType)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return derefEvent(target), nil
}

func derefEvent(e eventsourcing.Event) eventsourcing.Event {
	switch v := e.(type) {
	case *Opened:
		return *v
	case *NodeCreated:
		return *v
	case *ManualAccountGranted:
		return *v
	case *PeriodClosed:
		return *v
	default:
		return e
	}
}

// Store persists and loads Chart event logs.
type Store struct{ store *eventstore.Store }

// NewStore returns a Store over the given db.
func NewStore(db *gorm.DB) *Store {
	return &Store{store: eventstore.New(db, "chart")}
}

func (s *Store) Load(ctx context.Context, id ids.ChartID) (*Chart, error) {
	events, err := s.store.Load(ctx, id.String(), DecodeEvent)
	if err != nil {
		return nil, err
	}
	return Replay(events), nil
}

func (s *Store) Append(ctx context.Context, id ids.ChartID, nextSeq uint64, events []eventsourcing.Event) error {
	return s.store.Append(ctx, id.String(), nextSeq, events)
}

func (s *Store) NextSequence(ctx context.Context, id ids.ChartID) (uint64, error) {
	return s.store.NextSequence(ctx, id.String())
}
