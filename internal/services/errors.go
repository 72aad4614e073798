package services

import (
	"errors"
	"fmt"
)

// Configuration errors are fatal to the triggering request and are never
// retried automatically.
var (
	ErrAccessDenied       = errors.New("team has no grant for model group")
	ErrGroupNotFound      = errors.New("model group not found")
	ErrGroupInactive      = errors.New("model group is inactive")
	ErrNoModelsConfigured = errors.New("model group has no active models")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamSuspended      = errors.New("team is suspended")
	ErrTeamPaused         = errors.New("team is paused")
	ErrOrgSuspended       = errors.New("organization is not active")
	ErrJobNotFound        = errors.New("job not found")
	ErrJobTerminal        = errors.New("job is already in a terminal state")
	ErrLedgerNotFound     = errors.New("team ledger not found")
)

// ErrInsufficientCredits is a resource error: settlement is left incomplete
// and may be retried once credits are allocated.
var ErrInsufficientCredits = errors.New("insufficient credits")

// InsufficientCreditsError carries the numeric shortfall so callers can
// alert or bill manually. It matches ErrInsufficientCredits via errors.Is.
type InsufficientCreditsError struct {
	TeamID    uint
	Needed    int64
	Remaining int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for team %d: need %d, have %d (short %d)",
		e.TeamID, e.Needed, e.Remaining, e.Needed-e.Remaining)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}
