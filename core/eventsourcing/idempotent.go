package eventsourcing

// Idempotent is the tri-state result of every state-changing aggregate
// operation: either the transition executed and produced R, or it was a
// no-op because an equivalent transition was already recorded (spec.md
// §4.1, §9 "Idempotency as a first-class result" — kept a distinct type
// rather than collapsed to a boolean so callers cannot silently ignore
// which case they are in).
type Idempotent[R any] struct {
	executed bool
	result   R
}

// Executed wraps a produced result as the "this ran" case.
func Executed[R any](result R) Idempotent[R] {
	return Idempotent[R]{executed: true, result: result}
}

// Ignored constructs the "already recorded, nothing new happened" case.
func Ignored[R any]() Idempotent[R] {
	return Idempotent[R]{}
}

// WasExecuted reports whether the mutator actually appended new events.
func (i Idempotent[R]) WasExecuted() bool { return i.executed }

// WasIgnored is the complement of WasExecuted, read more naturally at call
// sites that only care about the no-op case.
func (i Idempotent[R]) WasIgnored() bool { return !i.executed }

// Result returns the produced value and whether the mutator executed. The
// zero value of R is returned when WasIgnored.
func (i Idempotent[R]) Result() (R, bool) { return i.result, i.executed }

// MustResult returns the produced value, panicking if the mutator was
// ignored. Reserved for call sites that have already branched on
// WasExecuted and want to avoid a second ok-check.
func (i Idempotent[R]) MustResult() R {
	if !i.executed {
		panic("eventsourcing: MustResult called on an Ignored outcome")
	}
	return i.result
}
