package accounting

import (
	"errors"
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
)

func mustOpenChart(t *testing.T) *Chart {
	t.Helper()
	c, _ := OpenChart("Main", 0, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return c
}

func TestOpenChartDefaultsTrialBalanceDepth(t *testing.T) {
	c := mustOpenChart(t)
	if c.TrialBalanceDepth != defaultTrialBalanceDepth {
		t.Fatalf("expected default depth %d, got %d", defaultTrialBalanceDepth, c.TrialBalanceDepth)
	}
}

func TestAccountCodeDepthAndParent(t *testing.T) {
	if got := AccountCode("1.2.3").Depth(); got != 3 {
		t.Fatalf("expected depth 3, got %d", got)
	}
	parent, ok := AccountCode("1.2.3").Parent()
	if !ok || parent != AccountCode("1.2") {
		t.Fatalf("expected parent 1.2, got %s ok=%v", parent, ok)
	}
	if _, ok := AccountCode("1").Parent(); ok {
		t.Fatalf("expected a root code to have no parent")
	}
}

func TestCreateRootNodeRejectsDuplicateCode(t *testing.T) {
	c := mustOpenChart(t)
	if _, _, err := c.CreateRootNode("1", "Assets"); err != nil {
		t.Fatalf("unexpected error creating root node: %v", err)
	}
	if _, _, err := c.CreateRootNode("1", "Assets Again"); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestCreateChildNodeRequiresExistingParent(t *testing.T) {
	c := mustOpenChart(t)
	if _, _, err := c.CreateChildNode("1.1", "Cash", ids.NewChartNodeID()); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}

	root, _, err := c.CreateRootNode("1", "Assets")
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, _, err := c.CreateChildNode("1.1", "Cash", root.ID)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.ParentID != root.ID || !child.HasParent {
		t.Fatalf("expected child to reference its parent, got %+v", child)
	}
	if c.Nodes[root.ID].ChildCount != 1 {
		t.Fatalf("expected parent child count 1, got %d", c.Nodes[root.ID].ChildCount)
	}
}

func TestGrantManualAccountRequiresChildlessNode(t *testing.T) {
	c := mustOpenChart(t)
	root, _, _ := c.CreateRootNode("1", "Assets")
	c.CreateChildNode("1.1", "Cash", root.ID)

	if _, err := c.GrantManualAccount(root.ID); !errors.Is(err, ErrNodeHasChildren) {
		t.Fatalf("expected ErrNodeHasChildren, got %v", err)
	}

	events, err := c.GrantManualAccount(c.CodeIndex["1.1"])
	if err != nil {
		t.Fatalf("unexpected error granting a childless node: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if !c.Nodes[c.CodeIndex["1.1"]].ManualAccountEnabled {
		t.Fatalf("expected manual account to be enabled")
	}
}

func TestGrantManualAccountIsIdempotent(t *testing.T) {
	c := mustOpenChart(t)
	root, _, _ := c.CreateRootNode("1", "Assets")
	c.GrantManualAccount(root.ID)

	events, err := c.GrantManualAccount(root.ID)
	if err != nil {
		t.Fatalf("unexpected error on a repeated grant: %v", err)
	}
	if events != nil {
		t.Fatalf("expected a repeated grant to be a no-op, got %d events", len(events))
	}
}

func TestGrantManualAccountRequiresKnownNode(t *testing.T) {
	c := mustOpenChart(t)
	if _, err := c.GrantManualAccount(ids.NewChartNodeID()); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestImportCSVWiresParentsRegardlessOfInputOrder(t *testing.T) {
	c := mustOpenChart(t)
	rows := []ImportCSVRow{
		{Code: "1.1.1", Name: "Petty cash"},
		{Code: "1", Name: "Assets"},
		{Code: "1.1", Name: "Cash"},
	}
	events, err := c.ImportCSV(rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 NodeCreated events, got %d", len(events))
	}
	leaf, ok := c.Nodes[c.CodeIndex["1.1.1"]]
	if !ok {
		t.Fatalf("expected the leaf node to have been created")
	}
	if leaf.ParentID != c.CodeIndex["1.1"] {
		t.Fatalf("expected the leaf's parent to resolve to 1.1")
	}
	if c.Nodes[c.CodeIndex["1"]].ChildCount != 1 || c.Nodes[c.CodeIndex["1.1"]].ChildCount != 1 {
		t.Fatalf("expected each ancestor to have exactly one child")
	}
}

func TestIsPostingAdmittedBeforeAnyClosing(t *testing.T) {
	c := mustOpenChart(t)
	if !c.IsPostingAdmitted(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected all postings admitted before any period is closed")
	}
}

// TestCloseLastMonthlyPeriodFollowsWorkedExample reproduces spec.md §8
// scenario 5 verbatim: a chart opened mid-January 2024, closed across a
// leap-year February.
func TestCloseLastMonthlyPeriodFollowsWorkedExample(t *testing.T) {
	c, _ := OpenChart("Main", 0, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	firstNow := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	events, err := c.CloseLastMonthlyPeriod(firstNow)
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one PeriodClosed event, got %d", len(events))
	}
	firstClose := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !c.ClosedAsOf.Equal(firstClose) {
		t.Fatalf("expected ClosedAsOf %s, got %s", firstClose, c.ClosedAsOf)
	}

	// Same now as the first call: the next closing would land in
	// February, now's own month, so it's rejected.
	if _, err := c.CloseLastMonthlyPeriod(firstNow); !errors.Is(err, ErrCannotCloseCurrentMonth) {
		t.Fatalf("expected ErrCannotCloseCurrentMonth, got %v", err)
	}
	if !c.ClosedAsOf.Equal(firstClose) {
		t.Fatalf("expected a rejected closing to leave ClosedAsOf untouched at %s, got %s", firstClose, c.ClosedAsOf)
	}

	thirdNow := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	events, err = c.CloseLastMonthlyPeriod(thirdNow)
	if err != nil {
		t.Fatalf("third close: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one PeriodClosed event, got %d", len(events))
	}
	secondClose := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) // 2024 is a leap year.
	if !c.ClosedAsOf.Equal(secondClose) {
		t.Fatalf("expected ClosedAsOf to advance to %s, got %s", secondClose, c.ClosedAsOf)
	}

	if c.IsPostingAdmitted(secondClose) || c.IsPostingAdmitted(secondClose.Add(-time.Hour)) {
		t.Fatalf("expected postings at or before the closing watermark to be rejected")
	}
	if !c.IsPostingAdmitted(secondClose.Add(time.Hour)) {
		t.Fatalf("expected a posting after the closing watermark to be admitted")
	}
}

func TestReplayRebuildsChartState(t *testing.T) {
	c := mustOpenChart(t)
	root, _, _ := c.CreateRootNode("1", "Assets")
	c.CreateChildNode("1.1", "Cash", root.ID)
	c.GrantManualAccount(c.CodeIndex["1.1"])

	var envelopes []eventsourcing.EventEnvelope
	for i, e := range c.history {
		envelopes = append(envelopes, eventsourcing.EventEnvelope{Sequence: uint64(i + 1), Payload: e})
	}

	replayed := Replay(envelopes)
	if replayed.Name != c.Name || !replayed.OpenedAt.Equal(c.OpenedAt) {
		t.Fatalf("expected replayed chart metadata to match original")
	}
	if len(replayed.Nodes) != len(c.Nodes) {
		t.Fatalf("expected replayed node count %d, got %d", len(c.Nodes), len(replayed.Nodes))
	}
	if !replayed.Nodes[c.CodeIndex["1.1"]].ManualAccountEnabled {
		t.Fatalf("expected the replayed chart to retain the manual-account grant")
	}
}
