package jobs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/observability/metrics"
)

// defaultPageSize bounds how many entities one sweep page touches, so a
// large book doesn't hold a single job run open indefinitely.
const defaultPageSize = 200

// FacilityLister is the subset of credit.FacilityRepository a sweep needs
// to page through open facilities.
type FacilityLister interface {
	ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error)
}

// ObligationLister is the subset of credit.ObligationRepository a sweep
// needs to page through obligations due for a scheduled transition.
type ObligationLister interface {
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]ids.ObligationID, error)
}

func sweepFacilities(ctx context.Context, job string, facilities FacilityLister, pageSize int, visit func(context.Context, ids.FacilityID) error) error {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	var after ids.FacilityID
	for {
		page, err := facilities.ListOpen(ctx, after, pageSize)
		if err != nil {
			return err
		}
		metrics.Credit().RecordSweepPage(job, len(page))
		for _, id := range page {
			if err := visit(ctx, id); err != nil {
				return err
			}
			after = id
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// NewInterestAccrualCycleJob starts or concludes each open facility's
// current accrual cycle (spec.md §4.5, §5).
func NewInterestAccrualCycleJob(svc *credit.Service, facilities FacilityLister, interval time.Duration, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "interest_accrual_cycle",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			return sweepFacilities(ctx, "interest_accrual_cycle", facilities, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				return svc.RunInterestAccrualCycleStep(ctx, id, now)
			})
		},
	}
}

// NewFacilityMaturityJob matures each open facility once past its maturity
// date (spec.md §4.6, §5 "facility-maturity job").
func NewFacilityMaturityJob(svc *credit.Service, facilities FacilityLister, interval time.Duration, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "facility_maturity",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			return sweepFacilities(ctx, "facility_maturity", facilities, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				return svc.MatureFacility(ctx, id, now)
			})
		},
	}
}

// NewCollateralizationFromPriceJob re-evaluates every open facility's
// collateralization state against the current BTC price, rate-limited so a
// large book doesn't hammer the price feed (spec.md §4.6, §5). Grounded on
// the teacher's gateway/middleware/ratelimit.go token-bucket use of
// golang.org/x/time/rate.
func NewCollateralizationFromPriceJob(svc *credit.Service, facilities FacilityLister, interval time.Duration, limiter *rate.Limiter, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "collateralization_from_price",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			outcome := "ok"
			err := sweepFacilities(ctx, "collateralization_from_price", facilities, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				return svc.RefreshFacilityCollateralization(ctx, id, now)
			})
			if err != nil {
				outcome = "error"
			}
			metrics.Credit().RecordCollateralizationSweep(outcome)
			return err
		},
	}
}

// NewPendingCollateralizationFromPriceJob is the pending-facility variant
// of NewCollateralizationFromPriceJob, run before a facility activates.
func NewPendingCollateralizationFromPriceJob(svc *credit.Service, pending FacilityLister, interval time.Duration, limiter *rate.Limiter, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "pending_collateralization_from_price",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			outcome := "ok"
			err := sweepFacilities(ctx, "pending_collateralization_from_price", pending, defaultPageSize, func(ctx context.Context, id ids.FacilityID) error {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				return svc.RefreshPendingFacilityCollateralization(ctx, id, now)
			})
			if err != nil {
				outcome = "error"
			}
			metrics.Credit().RecordCollateralizationSweep(outcome)
			return err
		},
	}
}

// NewObligationScheduleJob advances each due obligation through whichever
// of BecomeDue/BecomeOverdue/Default applies, covering the
// due/overdue/liquidation/defaulted jobs named in spec.md §5 with a single
// sweep over the schedule index.
func NewObligationScheduleJob(svc *credit.Service, obligations ObligationLister, interval time.Duration, logger *slog.Logger) *IntervalRunner {
	return &IntervalRunner{
		Name:     "obligation_schedule",
		Interval: interval,
		Logger:   logger,
		Run: func(ctx context.Context, now time.Time) error {
			for {
				page, err := obligations.ListDue(ctx, now, defaultPageSize)
				if err != nil {
					return err
				}
				metrics.Credit().RecordSweepPage("obligation_schedule", len(page))
				for _, id := range page {
					if err := svc.AdvanceObligation(ctx, id, now); err != nil {
						return err
					}
				}
				if len(page) < defaultPageSize {
					return nil
				}
			}
		},
	}
}
