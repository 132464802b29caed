package obligation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/ids"
)

// DecodeEvent turns a persisted (event type, payload) pair back into one
// of this package's typed events.
func DecodeEvent(eventType string, raw []byte) (eventsourcing.Event, error) {
	var target eventsourcing.Event
	switch eventType {
	case TypeCreated:
		target = &Created{}
	case TypeBecameDue:
		target = &BecameDue{}
	case TypeBecameOverdue:
		target = &BecameOverdue{}
	case TypeDefaulted:
		target = &Defaulted_{}
	case TypeAllocated:
		target = &Allocated{}
	case TypeCompleted:
		target = &Completed{}
	default:
		return nil, fmt.Errorf("obligation: unknown event type %q", eventType)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return derefEvent(target), nil
}

func derefEvent(e eventsourcing.Event) eventsourcing.Event {
	switch v := e.(type) {
	case *Created:
		return *v
	case *BecameDue:
		return *v
	case *BecameOverdue:
		return *v
	case *Defaulted_:
		return *v
	case *Allocated:
		return *v
	case *Completed:
		return *v
	default:
		return e
	}
}

// scheduleIndexRow tracks the next due/overdue/liquidation timestamp an
// obligation needs a scheduled job to act on (spec.md §5: "per obligation,
// scheduled at the corresponding timestamp"), so ListDue can page through
// due work without replaying every obligation ever created.
type scheduleIndexRow struct {
	ObligationID string `gorm:"primaryKey;size:64"`
	NextAction   time.Time
}

// facilityIndexRow tracks every obligation ever created against a facility,
// independent of the schedule index above (which drops terminal
// obligations), so ListByFacility can enumerate the full set a payment
// allocation needs to rank (spec.md §4.7 "Aggregation").
type facilityIndexRow struct {
	ObligationID string `gorm:"primaryKey;size:64"`
	FacilityID   string `gorm:"index;size:64"`
	Type         int
}

// AutoMigrateScheduleIndex creates the obligation-schedule and
// per-facility index tables.
func AutoMigrateScheduleIndex(db *gorm.DB) error {
	return db.AutoMigrate(&scheduleIndexRow{}, &facilityIndexRow{})
}

// Store adapts eventstore.Store to credit.ObligationRepository, maintaining
// the schedule index as a side effect of Append.
type Store struct {
	store *eventstore.Store
	db    *gorm.DB
}

// NewStore returns a Store over the given db.
func NewStore(db *gorm.DB) *Store {
	return &Store{store: eventstore.New(db, "obligation"), db: db}
}

func (s *Store) Load(ctx context.Context, id ids.ObligationID) (*Obligation, error) {
	events, err := s.store.Load(ctx, id.String(), DecodeEvent)
	if err != nil {
		return nil, err
	}
	return Replay(events), nil
}

func (s *Store) Append(ctx context.Context, id ids.ObligationID, nextSeq uint64, events []eventsourcing.Event) error {
	if err := s.store.Append(ctx, id.String(), nextSeq, events); err != nil {
		return err
	}
	for _, e := range events {
		if err := s.updateScheduleIndex(ctx, id, e); err != nil {
			return err
		}
		if err := s.updateFacilityIndex(ctx, id, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) updateFacilityIndex(ctx context.Context, id ids.ObligationID, e eventsourcing.Event) error {
	ev, ok := e.(Created)
	if !ok {
		return nil
	}
	row := facilityIndexRow{ObligationID: id.String(), FacilityID: ev.FacilityID.String(), Type: int(ev.Type)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "obligation_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *Store) updateScheduleIndex(ctx context.Context, id ids.ObligationID, e eventsourcing.Event) error {
	switch ev := e.(type) {
	case Created:
		row := scheduleIndexRow{ObligationID: id.String(), NextAction: ev.DueAt}
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "obligation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"next_action"}),
		}).Create(&row).Error
	case BecameDue:
		return s.rescheduleOrRemove(ctx, id)
	case BecameOverdue:
		return s.rescheduleOrRemove(ctx, id)
	case Defaulted_, Completed:
		return s.db.WithContext(ctx).Delete(&scheduleIndexRow{}, "obligation_id = ?", id.String()).Error
	}
	return nil
}

// rescheduleOrRemove re-reads the obligation to find its next timestamp
// (overdue_at after becoming due, liquidation_at after becoming overdue),
// removing the index entry once no further scheduled transition remains.
func (s *Store) rescheduleOrRemove(ctx context.Context, id ids.ObligationID) error {
	ob, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	var next *time.Time
	switch ob.Status {
	case Due:
		next = ob.OverdueAt
	case Overdue:
		next = ob.LiquidationAt
	}
	if next == nil {
		return s.db.WithContext(ctx).Delete(&scheduleIndexRow{}, "obligation_id = ?", id.String()).Error
	}
	row := scheduleIndexRow{ObligationID: id.String(), NextAction: *next}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "obligation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"next_action"}),
	}).Create(&row).Error
}

func (s *Store) NextSequence(ctx context.Context, id ids.ObligationID) (uint64, error) {
	return s.store.NextSequence(ctx, id.String())
}

// LoadEnvelopes returns the obligation's raw event envelopes, for
// projections that fold the stream directly (core/credit/jobs).
func (s *Store) LoadEnvelopes(ctx context.Context, id ids.ObligationID) ([]eventsourcing.EventEnvelope, error) {
	return s.store.Load(ctx, id.String(), DecodeEvent)
}

// ListDue returns up to limit obligation ids whose indexed next action is
// at or before asOf (spec.md §5).
func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]ids.ObligationID, error) {
	var rows []scheduleIndexRow
	q := s.db.WithContext(ctx).Where("next_action <= ?", asOf).Order("next_action ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]ids.ObligationID, 0, len(rows))
	for _, r := range rows {
		parsed, err := ids.ParseObligationID(r.ObligationID)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

// ListByFacility returns every obligation id ever created against
// facilityID, for the payment-allocation aggregation in
// core/credit/service.go (spec.md §4.7 "Aggregation").
func (s *Store) ListByFacility(ctx context.Context, facilityID ids.FacilityID) ([]ids.ObligationID, error) {
	var rows []facilityIndexRow
	if err := s.db.WithContext(ctx).Where("facility_id = ?", facilityID.String()).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]ids.ObligationID, 0, len(rows))
	for _, r := range rows {
		parsed, err := ids.ParseObligationID(r.ObligationID)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}
