package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/obligation"
	"github.com/HonestMajority/lana-bank/core/projections"
)

// NewHistoryProjectionJob rebuilds each open facility's history projection
// from its own event stream plus the stream of every obligation it has
// created (spec.md §4.9, §5 "projection jobs").
func NewHistoryProjectionJob(facilities FacilityLister, facilityStore *credit.FacilityStore, obligationStore *obligation.Store, projector *projections.HistoryProjector, interval time.Duration, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "history_projection",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			return sweepFacilities(ctx, "history_projection", facilities, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				facility, err := facilityStore.Load(ctx, id)
				if err != nil {
					return err
				}
				state, err := projector.Load(ctx, id.String())
				if err != nil {
					return err
				}
				envelopes, err := facilityStore.LoadEnvelopes(ctx, id)
				if err != nil {
					return err
				}
				if err := projector.Apply(ctx, id.String(), state, id.String(), envelopes); err != nil {
					return err
				}
				for _, obID := range facilityObligationIDs(facility) {
					obEnvelopes, err := obligationStore.LoadEnvelopes(ctx, obID)
					if err != nil {
						return err
					}
					if err := projector.Apply(ctx, id.String(), state, obID.String(), obEnvelopes); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// NewRepaymentPlanProjectionJob rebuilds each open facility's repayment
// plan by replaying the obligations its facility aggregate already knows
// about (accrual-cycle and disbursal obligation ids), avoiding a separate
// obligation-to-facility index (spec.md §4.9, §5).
func NewRepaymentPlanProjectionJob(facilities FacilityLister, facilityStore *credit.FacilityStore, obligationStore *obligation.Store, projector *projections.RepaymentPlanProjector, interval time.Duration, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "repayment_plan_projection",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			return sweepFacilities(ctx, "repayment_plan_projection", facilities, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				facility, err := facilityStore.Load(ctx, id)
				if err != nil {
					return err
				}
				state, err := projector.Load(ctx, id.String())
				if err != nil {
					return err
				}
				disbursalIsFee := make(map[ids.DisbursalID]bool, len(facility.Disbursals))
				for i, d := range facility.Disbursals {
					disbursalIsFee[d.ID] = i == 0 && facility.Terms.OneTimeFeeRateBps > 0
				}
				for _, obID := range facilityObligationIDs(facility) {
					envelopes, err := obligationStore.LoadEnvelopes(ctx, obID)
					if err != nil {
						return err
					}
					if err := projector.Apply(ctx, id.String(), state, obID.String(), envelopes, disbursalIsFee); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func facilityObligationIDs(f *credit.CreditFacility) []ids.ObligationID {
	seen := make(map[ids.ObligationID]bool)
	var out []ids.ObligationID
	add := func(id ids.ObligationID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, cycle := range f.Cycles {
		add(cycle.ObligationID)
	}
	for _, d := range f.Disbursals {
		add(d.ObligationID)
	}
	return out
}
