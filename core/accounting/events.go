package accounting

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/ids"
)

const (
	TypeOpened               = "chart.opened"
	TypeNodeCreated          = "chart.node_created"
	TypeManualAccountGranted = "chart.manual_account_granted"
	TypePeriodClosed         = "chart.accounting_period_closed"
)

// Opened is emitted by OpenChart.
type Opened struct {
	ChartID           ids.ChartID
	Name              string
	OpenedAt          time.Time
	TrialBalanceDepth int
}

func (Opened) EventType() string { return TypeOpened }

// NodeCreated is emitted by createNode (root, child, or unchecked).
type NodeCreated struct {
	ChartID   ids.ChartID
	NodeID    ids.ChartNodeID
	Code      AccountCode
	Name      string
	ParentID  ids.ChartNodeID
	HasParent bool
}

func (NodeCreated) EventType() string { return TypeNodeCreated }

// ManualAccountGranted is emitted by GrantManualAccount.
type ManualAccountGranted struct {
	ChartID ids.ChartID
	NodeID  ids.ChartNodeID
}

func (ManualAccountGranted) EventType() string { return TypeManualAccountGranted }

// PeriodClosed is emitted by CloseLastMonthlyPeriod — the
// AccountingPeriodClosed event named in spec.md §4.8.
type PeriodClosed struct {
	ChartID    ids.ChartID
	ClosedAsOf time.Time
	ClosedAt   time.Time
}

func (PeriodClosed) EventType() string { return TypePeriodClosed }
