package jobs

import (
	"context"
	"testing"

	"github.com/HonestMajority/lana-bank/core/ids"
)

type fakeFacilityLister struct {
	pages [][]ids.FacilityID
	calls int
}

func (f *fakeFacilityLister) ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestSweepFacilitiesPaginatesUntilShortPage(t *testing.T) {
	first := []ids.FacilityID{ids.NewFacilityID(), ids.NewFacilityID()}
	second := []ids.FacilityID{ids.NewFacilityID()}
	lister := &fakeFacilityLister{pages: [][]ids.FacilityID{first, second}}

	var visited []ids.FacilityID
	err := sweepFacilities(context.Background(), "test", lister, 2, func(ctx context.Context, id ids.FacilityID) error {
		visited = append(visited, id)
		return nil
	})
	if err != nil {
		t.Fatalf("sweepFacilities: %v", err)
	}
	if len(visited) != 3 {
		t.Fatalf("expected 3 facilities visited across two pages, got %d", len(visited))
	}
	if lister.calls != 2 {
		t.Fatalf("expected the sweep to stop after the short page, made %d calls", lister.calls)
	}
}

func TestSweepFacilitiesStopsOnVisitError(t *testing.T) {
	lister := &fakeFacilityLister{pages: [][]ids.FacilityID{
		{ids.NewFacilityID(), ids.NewFacilityID()},
		{ids.NewFacilityID(), ids.NewFacilityID()},
	}}

	boom := context.Canceled
	visitCount := 0
	err := sweepFacilities(context.Background(), "test", lister, 2, func(ctx context.Context, id ids.FacilityID) error {
		visitCount++
		if visitCount == 1 {
			return boom
		}
		return nil
	})
	if err != boom {
		t.Fatalf("expected sweepFacilities to propagate the visit error, got %v", err)
	}
	if visitCount != 1 {
		t.Fatalf("expected the sweep to stop at the first error, visited %d", visitCount)
	}
}

func TestSweepFacilitiesHandlesEmptyResult(t *testing.T) {
	lister := &fakeFacilityLister{pages: [][]ids.FacilityID{{}}}
	visited := 0
	err := sweepFacilities(context.Background(), "test", lister, 50, func(ctx context.Context, id ids.FacilityID) error {
		visited++
		return nil
	})
	if err != nil {
		t.Fatalf("sweepFacilities: %v", err)
	}
	if visited != 0 {
		t.Fatalf("expected no facilities visited for an empty page, got %d", visited)
	}
}
