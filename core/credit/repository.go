package credit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/ids"
)

// DecodeEvent turns a persisted (event type, payload) pair back into one
// of this package's typed events, the Decoder eventstore.Store.Load needs.
func DecodeEvent(eventType string, raw []byte) (eventsourcing.Event, error) {
	var target eventsourcing.Event
	switch eventType {
	case TypeProposalInitialized:
		target = &ProposalInitialized{}
	case TypeProposalApprovalConcluded:
		target = &ProposalApprovalConcluded{}
	case TypePendingInitialized:
		target = &PendingInitialized{}
	case TypePendingCollateralizationState:
		target = &PendingCollateralizationStateChanged{}
	case TypePendingCollateralizationRatio:
		target = &PendingCollateralizationRatioChanged{}
	case TypePendingCompleted:
		target = &PendingCompleted{}
	case TypeFacilityInitialized:
		target = &FacilityInitialized{}
	case TypeFacilityCollateralizationState:
		target = &FacilityCollateralizationStateChanged{}
	case TypeFacilityCollateralizationRatio:
		target = &FacilityCollateralizationRatioChanged{}
	case TypeFacilityCollateralUpdated:
		target = &FacilityCollateralUpdated{}
	case TypeFacilityAccrualCycleStarted:
		target = &FacilityAccrualCycleStarted{}
	case TypeFacilityAccrualCycleConcluded:
		target = &FacilityAccrualCycleConcluded{}
	case TypeFacilityMatured:
		target = &FacilityMatured{}
	case TypeFacilityCompleted:
		target = &FacilityCompleted{}
	case TypeDisbursalInitiated:
		target = &DisbursalInitiated{}
	case TypeDisbursalSettled:
		target = &DisbursalSettled{}
	case TypeDisbursalCancelled:
		target = &DisbursalCancelled{}
	default:
		return nil, fmt.Errorf("credit: unknown event type %q", eventType)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return derefEvent(target), nil
}

// derefEvent unwraps the pointer receivers DecodeEvent uses for
// json.Unmarshal back into the value types Apply's switch matches on.
func derefEvent(e eventsourcing.Event) eventsourcing.Event {
	switch v := e.(type) {
	case *ProposalInitialized:
		return *v
	case *ProposalApprovalConcluded:
		return *v
	case *PendingInitialized:
		return *v
	case *PendingCollateralizationStateChanged:
		return *v
	case *PendingCollateralizationRatioChanged:
		return *v
	case *PendingCompleted:
		return *v
	case *FacilityInitialized:
		return *v
	case *FacilityCollateralizationStateChanged:
		return *v
	case *FacilityCollateralizationRatioChanged:
		return *v
	case *FacilityCollateralUpdated:
		return *v
	case *FacilityAccrualCycleStarted:
		return *v
	case *FacilityAccrualCycleConcluded:
		return *v
	case *FacilityMatured:
		return *v
	case *FacilityCompleted:
		return *v
	case *DisbursalInitiated:
		return *v
	case *DisbursalSettled:
		return *v
	case *DisbursalCancelled:
		return *v
	default:
		return e
	}
}

// ProposalStore adapts eventstore.Store to ProposalRepository.
type ProposalStore struct{ store *eventstore.Store }

// NewProposalStore returns a ProposalStore over the given db.
func NewProposalStore(db *gorm.DB) *ProposalStore {
	return &ProposalStore{store: eventstore.New(db, "credit_facility_proposal")}
}

func (s *ProposalStore) Load(ctx context.Context, id ids.FacilityID) (*CreditFacilityProposal, error) {
	events, err := s.store.Load(ctx, id.String(), DecodeEvent)
	if err != nil {
		return nil, err
	}
	return ReplayProposal(events), nil
}

func (s *ProposalStore) Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error {
	return s.store.Append(ctx, id.String(), nextSeq, events)
}

func (s *ProposalStore) NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error) {
	return s.store.NextSequence(ctx, id.String())
}

// openPendingIndexRow tracks which pending facilities have not yet
// completed, backing ListOpen for the pending-facility variant of the
// collateralisation-from-price job (spec.md §5).
type openPendingIndexRow struct {
	FacilityID string `gorm:"primaryKey;size:64"`
}

// AutoMigrateOpenPendingIndex creates the open-pending-facility index table.
func AutoMigrateOpenPendingIndex(db *gorm.DB) error {
	return db.AutoMigrate(&openPendingIndexRow{})
}

// PendingFacilityStore adapts eventstore.Store to PendingFacilityRepository,
// maintaining the open-pending index as a side effect of Append.
type PendingFacilityStore struct {
	store *eventstore.Store
	db    *gorm.DB
}

// NewPendingFacilityStore returns a PendingFacilityStore over the given db.
func NewPendingFacilityStore(db *gorm.DB) *PendingFacilityStore {
	return &PendingFacilityStore{store: eventstore.New(db, "pending_credit_facility"), db: db}
}

func (s *PendingFacilityStore) Load(ctx context.Context, id ids.FacilityID) (*PendingCreditFacility, error) {
	events, err := s.store.Load(ctx, id.String(), DecodeEvent)
	if err != nil {
		return nil, err
	}
	return ReplayPendingFacility(events), nil
}

func (s *PendingFacilityStore) Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error {
	if err := s.store.Append(ctx, id.String(), nextSeq, events); err != nil {
		return err
	}
	for _, e := range events {
		switch e.(type) {
		case PendingInitialized:
			row := openPendingIndexRow{FacilityID: id.String()}
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		case PendingCompleted:
			if err := s.db.WithContext(ctx).Delete(&openPendingIndexRow{}, "facility_id = ?", id.String()).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *PendingFacilityStore) NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error) {
	return s.store.NextSequence(ctx, id.String())
}

// ListOpen returns up to limit not-yet-completed pending-facility ids
// ordered after afterID.
func (s *PendingFacilityStore) ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error) {
	var rows []openPendingIndexRow
	q := s.db.WithContext(ctx).Order("facility_id ASC")
	if !afterID.IsZero() {
		q = q.Where("facility_id > ?", afterID.String())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]ids.FacilityID, 0, len(rows))
	for _, r := range rows {
		parsed, err := ids.ParseFacilityID(r.FacilityID)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

// openFacilityIndexRow tracks which facilities are still open, maintained
// alongside the event log so ListOpen doesn't need to replay every
// facility ever created (spec.md §5: "periodic scan of all open
// facilities").
type openFacilityIndexRow struct {
	FacilityID string `gorm:"primaryKey;size:64"`
}

// AutoMigrateOpenFacilityIndex creates the open-facility index table.
func AutoMigrateOpenFacilityIndex(db *gorm.DB) error {
	return db.AutoMigrate(&openFacilityIndexRow{})
}

// FacilityStore adapts eventstore.Store to FacilityRepository, maintaining
// the open-facility index as a side effect of Append.
type FacilityStore struct {
	store *eventstore.Store
	db    *gorm.DB
}

// NewFacilityStore returns a FacilityStore over the given db.
func NewFacilityStore(db *gorm.DB) *FacilityStore {
	return &FacilityStore{store: eventstore.New(db, "credit_facility"), db: db}
}

func (s *FacilityStore) Load(ctx context.Context, id ids.FacilityID) (*CreditFacility, error) {
	events, err := s.store.Load(ctx, id.String(), DecodeEvent)
	if err != nil {
		return nil, err
	}
	return ReplayFacility(events), nil
}

func (s *FacilityStore) Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error {
	if err := s.store.Append(ctx, id.String(), nextSeq, events); err != nil {
		return err
	}
	for _, e := range events {
		switch e.(type) {
		case FacilityInitialized:
			row := openFacilityIndexRow{FacilityID: id.String()}
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		case FacilityCompleted:
			if err := s.db.WithContext(ctx).Delete(&openFacilityIndexRow{}, "facility_id = ?", id.String()).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *FacilityStore) NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error) {
	return s.store.NextSequence(ctx, id.String())
}

// LoadEnvelopes returns the facility's raw event envelopes, sequence
// numbers included, for projections that fold the stream directly rather
// than through the replayed aggregate (core/credit/jobs).
func (s *FacilityStore) LoadEnvelopes(ctx context.Context, id ids.FacilityID) ([]eventsourcing.EventEnvelope, error) {
	return s.store.Load(ctx, id.String(), DecodeEvent)
}

// ListOpen returns up to limit open-facility ids ordered after afterID, for
// the collateralisation-from-price sweep (spec.md §5).
func (s *FacilityStore) ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error) {
	var rows []openFacilityIndexRow
	q := s.db.WithContext(ctx).Order("facility_id ASC")
	if !afterID.IsZero() {
		q = q.Where("facility_id > ?", afterID.String())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]ids.FacilityID, 0, len(rows))
	for _, r := range rows {
		parsed, err := ids.ParseFacilityID(r.FacilityID)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}
