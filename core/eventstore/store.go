// Package eventstore persists aggregate event logs and projection blobs to
// Postgres via gorm, grounded on the teacher's services/otc-gateway models
// package (uuid-keyed gorm structs) and its main.go's
// gorm.Open(postgres.Open(...)) / AutoMigrate wiring. It is the one
// concrete implementation of "append-only event log keyed by aggregate id"
// named in spec.md §6.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
)

// EventRecord is the row shape for one persisted event. AggregateType
// namespaces the sequence space (a FacilityID and an ObligationID could
// otherwise collide); the unique index on (aggregate_type, aggregate_id,
// sequence) is what optimistic concurrency rides on.
type EventRecord struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	AggregateType string `gorm:"size:64;uniqueIndex:idx_event_seq,priority:1"`
	AggregateID   string `gorm:"size:64;uniqueIndex:idx_event_seq,priority:2;index"`
	Sequence      uint64 `gorm:"uniqueIndex:idx_event_seq,priority:3"`
	EventType     string `gorm:"size:128;index"`
	Payload       []byte `gorm:"type:jsonb"`
	RecordedAt    time.Time
	GlobalSeq     uint64 `gorm:"autoIncrement;index"`
}

// ProjectionBlob is a single JSON-blob-keyed-by-aggregate-id row, used for
// the history/repayment-plan projections. Chart period-closing metadata is
// not stored in this table; the chart keeps it in its own event stream.
type ProjectionBlob struct {
	Projection   string `gorm:"size:64;primaryKey"`
	AggregateID  string `gorm:"size:64;primaryKey"`
	LastSequence uint64
	Blob         []byte `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

// AutoMigrate creates/updates the event-store tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{}, &ProjectionBlob{})
}

// Decoder turns a (event type, raw JSON payload) pair back into a typed
// Event. Each aggregate package supplies its own decoder covering its
// event vocabulary.
type Decoder func(eventType string, raw []byte) (eventsourcing.Event, error)

// Store is a thin, type-namespaced wrapper over the events table.
type Store struct {
	db            *gorm.DB
	aggregateType string
}

// New returns a Store scoped to one aggregate type (e.g. "credit_facility",
// "obligation", "chart").
func New(db *gorm.DB, aggregateType string) *Store {
	return &Store{db: db, aggregateType: aggregateType}
}

// Append persists new events for an aggregate, asserting that nextSeq is
// exactly one past the last persisted sequence. A unique-constraint
// violation on the race is reported as eventsourcing.ErrConcurrentModification
// per spec.md §5.
func (s *Store) Append(ctx context.Context, aggregateID string, nextSeq uint64, events []eventsourcing.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	records := make([]EventRecord, 0, len(events))
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		records = append(records, EventRecord{
			AggregateType: s.aggregateType,
			AggregateID:   aggregateID,
			Sequence:      nextSeq + uint64(i),
			EventType:     e.EventType(),
			Payload:       payload,
			RecordedAt:    now,
		})
	}
	err := s.db.WithContext(ctx).Create(&records).Error
	if err != nil && isUniqueViolation(err) {
		return eventsourcing.ErrConcurrentModification
	}
	return err
}

// Load returns every event persisted for the aggregate id, in sequence
// order, decoded via the supplied Decoder.
func (s *Store) Load(ctx context.Context, aggregateID string, decode Decoder) ([]eventsourcing.EventEnvelope, error) {
	var rows []EventRecord
	err := s.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", s.aggregateType, aggregateID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	envelopes := make([]eventsourcing.EventEnvelope, 0, len(rows))
	for _, row := range rows {
		payload, err := decode(row.EventType, row.Payload)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, eventsourcing.EventEnvelope{
			Sequence:   row.Sequence,
			RecordedAt: row.RecordedAt,
			Payload:    payload,
		})
	}
	return envelopes, nil
}

// NextSequence returns one past the highest persisted sequence for the
// aggregate id (1 if none persisted yet).
func (s *Store) NextSequence(ctx context.Context, aggregateID string) (uint64, error) {
	var max uint64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).
		Where("aggregate_type = ? AND aggregate_id = ?", s.aggregateType, aggregateID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ByIndex loads every event of a given aggregate type recorded after
// afterGlobalSeq, in global order — the feed consumed by projections and
// other stream subscribers (spec.md §5/§6).
func (s *Store) ByIndex(ctx context.Context, afterGlobalSeq uint64, limit int) ([]EventRecord, error) {
	var rows []EventRecord
	q := s.db.WithContext(ctx).
		Where("aggregate_type = ? AND global_seq > ?", s.aggregateType, afterGlobalSeq).
		Order("global_seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// gorm/pgx surface unique violations without a stable typed sentinel
	// across driver versions; matching on SQLSTATE 23505 via string
	// inspection keeps this dependency-agnostic of the specific pgconn
	// error type.
	var msg string
	if pgErr, ok := asPgError(err); ok {
		msg = pgErr
	} else {
		msg = err.Error()
	}
	return contains(msg, "23505") || contains(msg, "duplicate key")
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

func asPgError(err error) (string, bool) {
	type sqlStater interface{ SQLState() string }
	var s sqlStater
	if errors.As(err, &s) {
		return s.SQLState(), true
	}
	return "", false
}
