package accounting

import "errors"

var (
	// ErrDuplicateCode is a Validation-kind error: a chart already has a
	// node at the given code (spec.md §4.8: "codes are unique within a
	// chart").
	ErrDuplicateCode = errors.New("accounting: account code already in use")

	// ErrParentNotFound is a Precondition-kind error: create_child_node
	// requires the parent to exist at insertion time (spec.md §4.8).
	ErrParentNotFound = errors.New("accounting: parent account not found")

	// ErrNodeNotFound guards operations against an unknown node id.
	ErrNodeNotFound = errors.New("accounting: chart node not found")

	// ErrNodeHasChildren is a Precondition-kind error: a manual-transaction
	// account may only be granted on a childless node (spec.md §4.8).
	ErrNodeHasChildren = errors.New("accounting: node has children")

	// ErrCannotCloseCurrentMonth is a Precondition-kind error: closings are
	// rejected when the proposed closed_as_of falls in the current calendar
	// month (spec.md §4.8).
	ErrCannotCloseCurrentMonth = errors.New("accounting: cannot close the current month")
)
