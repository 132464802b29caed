// Package accounting implements the chart of accounts and monthly period
// closing (spec.md §4.8): a forest of ChartNodes keyed by dotted
// hierarchical AccountCodes, with a posting-admission watermark consulted
// by the external ledger.
package accounting

import (
	"sort"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
)

// AccountCode is a dotted hierarchical section path, e.g. "1.2" or
// "1.2.3" (spec.md §4.8).
type AccountCode string

// Depth returns the number of dotted segments, e.g. Depth("1.2") == 2.
func (c AccountCode) Depth() int {
	depth := 1
	for _, r := range c {
		if r == '.' {
			depth++
		}
	}
	return depth
}

// Parent returns the code's parent section and true, or ("", false) for a
// depth-1 (root) code.
func (c AccountCode) Parent() (AccountCode, bool) {
	s := string(c)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return AccountCode(s[:i]), true
		}
	}
	return "", false
}

// defaultTrialBalanceDepth is the default depth at which a node is a
// trial-balance account (spec.md §4.8: "an explicit design policy, derived from the
// canonical Asset/Liab/Eq/Rev/Exp x sub-category layout"). Configurable
// per chart since some charts add an extra top-level grouping layer
// (spec.md §9 Open Question; see DESIGN.md).
const defaultTrialBalanceDepth = 2

// ChartNode is one node in the chart's forest.
type ChartNode struct {
	ID       ids.ChartNodeID
	Code     AccountCode
	Name     string
	ParentID ids.ChartNodeID // zero value for a root node
	HasParent bool

	ManualAccountEnabled bool
	ChildCount           int
}

// IsTrialBalanceAccount reports whether this node sits at the chart's
// configured trial-balance depth.
func (n ChartNode) IsTrialBalanceAccount(trialBalanceDepth int) bool {
	return n.Code.Depth() == trialBalanceDepth
}

// Chart is a forest of ChartNodes with a monthly period-closing watermark
// (spec.md §4.8).
type Chart struct {
	ID                ids.ChartID
	Name              string
	OpenedAt          time.Time
	TrialBalanceDepth int

	Nodes          map[ids.ChartNodeID]*ChartNode
	CodeIndex      map[AccountCode]ids.ChartNodeID
	ClosedAsOf     time.Time // zero value: nothing closed yet

	history []eventsourcing.Event
}

func (c *Chart) Apply(e eventsourcing.Event) {
	c.history = append(c.history, e)
	switch ev := e.(type) {
	case Opened:
		c.ID = ev.ChartID
		c.Name = ev.Name
		c.OpenedAt = ev.OpenedAt
		c.TrialBalanceDepth = ev.TrialBalanceDepth
		c.Nodes = map[ids.ChartNodeID]*ChartNode{}
		c.CodeIndex = map[AccountCode]ids.ChartNodeID{}
	case NodeCreated:
		node := &ChartNode{ID: ev.NodeID, Code: ev.Code, Name: ev.Name, ParentID: ev.ParentID, HasParent: ev.HasParent}
		c.Nodes[node.ID] = node
		c.CodeIndex[node.Code] = node.ID
		if ev.HasParent {
			if parent, ok := c.Nodes[ev.ParentID]; ok {
				parent.ChildCount++
			}
		}
		// Attach any node created earlier whose parent id did not resolve
		// and whose parent code is this node's code.
		for _, other := range c.Nodes {
			if _, attached := c.Nodes[other.ParentID]; !other.HasParent || attached {
				continue
			}
			if parentCode, _ := other.Code.Parent(); parentCode == node.Code {
				other.ParentID = node.ID
				node.ChildCount++
			}
		}
	case ManualAccountGranted:
		if node, ok := c.Nodes[ev.NodeID]; ok {
			node.ManualAccountEnabled = true
		}
	case PeriodClosed:
		c.ClosedAsOf = ev.ClosedAsOf
	}
}

// Replay rebuilds a chart from its event log.
func Replay(events []eventsourcing.EventEnvelope) *Chart {
	c := &Chart{}
	for _, e := range events {
		c.Apply(e.Payload)
	}
	return c
}

// OpenChart creates a brand-new, empty chart.
func OpenChart(name string, trialBalanceDepth int, now time.Time) (*Chart, []eventsourcing.Event) {
	if trialBalanceDepth <= 0 {
		trialBalanceDepth = defaultTrialBalanceDepth
	}
	evt := Opened{ChartID: ids.NewChartID(), Name: name, OpenedAt: now, TrialBalanceDepth: trialBalanceDepth}
	c := &Chart{}
	c.Apply(evt)
	return c, []eventsourcing.Event{evt}
}

// CreateRootNode creates a node with no parent (spec.md §4.8). Fails with
// ErrDuplicateCode if the code is already in use.
func (c *Chart) CreateRootNode(code AccountCode, name string) (*ChartNode, []eventsourcing.Event, error) {
	return c.createNode(code, name, ids.ChartNodeID{}, false)
}

// CreateChildNode creates a node whose parent must already exist at
// insertion time (spec.md §4.8). Fails with ErrParentNotFound if it does
// not, or ErrDuplicateCode if the code is already in use.
func (c *Chart) CreateChildNode(code AccountCode, name string, parentID ids.ChartNodeID) (*ChartNode, []eventsourcing.Event, error) {
	if _, ok := c.Nodes[parentID]; !ok {
		return nil, nil, ErrParentNotFound
	}
	return c.createNode(code, name, parentID, true)
}

// CreateNodeWithoutVerifyingParent is the explicit unchecked constructor
// named in SPEC_FULL.md, identical to CreateRootNode but accepting a
// parent id on faith. A node whose parent id does not resolve stays
// unattached until a node with its parent code is created; Apply then
// attaches it to that node.
func (c *Chart) CreateNodeWithoutVerifyingParent(code AccountCode, name string, parentID ids.ChartNodeID, hasParent bool) (*ChartNode, []eventsourcing.Event, error) {
	return c.createNode(code, name, parentID, hasParent)
}

func (c *Chart) createNode(code AccountCode, name string, parentID ids.ChartNodeID, hasParent bool) (*ChartNode, []eventsourcing.Event, error) {
	if _, exists := c.CodeIndex[code]; exists {
		return nil, nil, ErrDuplicateCode
	}
	evt := NodeCreated{ChartID: c.ID, NodeID: ids.NewChartNodeID(), Code: code, Name: name, ParentID: parentID, HasParent: hasParent}
	c.Apply(evt)
	return c.Nodes[evt.NodeID], []eventsourcing.Event{evt}, nil
}

// GrantManualAccount allows direct manual transactions against a node,
// only while it has no children (spec.md §4.8).
func (c *Chart) GrantManualAccount(nodeID ids.ChartNodeID) ([]eventsourcing.Event, error) {
	node, ok := c.Nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	if node.ChildCount > 0 {
		return nil, ErrNodeHasChildren
	}
	if node.ManualAccountEnabled {
		return nil, nil
	}
	evt := ManualAccountGranted{ChartID: c.ID, NodeID: nodeID}
	c.Apply(evt)
	return []eventsourcing.Event{evt}, nil
}

// ImportCSVRow is one bulk-import row: a code and a name. The parent is
// derived from the code's dotted prefix.
type ImportCSVRow struct {
	Code AccountCode
	Name string
}

// ImportCSV bulk-creates nodes from rows sorted by code descending, so a
// child's row is processed before its parent's (spec.md §4.8). Each row
// goes through the same unchecked path as CreateNodeWithoutVerifyingParent,
// and each child is attached when its parent's node is created.
func (c *Chart) ImportCSV(rows []ImportCSVRow) ([]eventsourcing.Event, error) {
	sorted := make([]ImportCSVRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code > sorted[j].Code })

	var events []eventsourcing.Event
	for _, row := range sorted {
		parentCode, hasParent := row.Code.Parent()
		var parentID ids.ChartNodeID
		if hasParent {
			parentID = c.CodeIndex[parentCode]
		}
		_, evs, err := c.createNode(row.Code, row.Name, parentID, hasParent)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

// CloseLastMonthlyPeriod advances ClosedAsOf to the last day of the
// chart's opening month (first call) or of the month following the last
// closing's month (every call after). Rejected with ErrCannotCloseCurrentMonth when
// that proposed closed_as_of falls in the same calendar month as now — the
// month a caller is standing in can't yet be closed (spec.md §4.8).
func (c *Chart) CloseLastMonthlyPeriod(now time.Time) ([]eventsourcing.Event, error) {
	var reference time.Time
	if c.ClosedAsOf.IsZero() {
		reference = firstOfMonth(c.OpenedAt)
	} else {
		reference = firstOfMonth(c.ClosedAsOf).AddDate(0, 1, 0)
	}
	nextClosedAsOf := lastDayOfMonth(reference)

	if nextClosedAsOf.Year() == now.Year() && nextClosedAsOf.Month() == now.Month() {
		return nil, ErrCannotCloseCurrentMonth
	}

	evt := PeriodClosed{ChartID: c.ID, ClosedAsOf: nextClosedAsOf, ClosedAt: now}
	c.Apply(evt)
	return []eventsourcing.Event{evt}, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func lastDayOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, 0).Add(-24 * time.Hour)
}

// IsPostingAdmitted reports whether a posting with the given effective
// date is admitted under this chart's closing watermark: strictly after
// closed_as_of (spec.md §4.8).
func (c *Chart) IsPostingAdmitted(effective time.Time) bool {
	if c.ClosedAsOf.IsZero() {
		return true
	}
	return effective.After(c.ClosedAsOf)
}
