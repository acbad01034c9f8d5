package domain

// OutcomeStatus classifies the result of one executed action.
type OutcomeStatus int

const (
	// StatusOK means the action succeeded.
	StatusOK OutcomeStatus = iota
	// StatusRateLimited means the platform refused the action with a
	// cooldown; the wallet should try again after the cooldown passes.
	StatusRateLimited
	// StatusFailed means the action failed for this pass.
	StatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Outcome is the structured result collaborators return per action.
type Outcome struct {
	Status  OutcomeStatus
	Message string
}

func OK(msg string) Outcome          { return Outcome{Status: StatusOK, Message: msg} }
func RateLimited(msg string) Outcome { return Outcome{Status: StatusRateLimited, Message: msg} }
func Failed(msg string) Outcome      { return Outcome{Status: StatusFailed, Message: msg} }
