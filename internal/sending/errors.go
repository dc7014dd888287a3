package sending

import "errors"

var (
	// ErrNotFound means the lead id does not exist
	ErrNotFound = errors.New("lead not found")

	// ErrForbiddenScope means the caller's SDR scope does not own the lead
	ErrForbiddenScope = errors.New("contact not assigned to this SDR")

	// ErrAlreadyProcessed means the lead left the dispatchable states
	// before this confirmation landed (double confirm, or raced with a
	// failure report)
	ErrAlreadyProcessed = errors.New("lead is no longer pending")
)

// Policy rejection reasons surfaced to callers. These are authoritative:
// the caller must wait for the next valid window, not retry.
const (
	ReasonWeekend       = "Weekend restriction"
	ReasonOutsideHours  = "Outside working hours"
	ReasonQuotaExceeded = "Daily limit reached"
)

// PolicyRejectionError is a hard policy rejection of a send confirmation,
// evaluated against the server clock.
type PolicyRejectionError struct {
	Reason  string
	Details WindowDetails
}

func (e *PolicyRejectionError) Error() string {
	return e.Reason + ": " + e.Details.CurrentDay + " " + e.Details.CurrentTime + " (window " + e.Details.Window + ")"
}
