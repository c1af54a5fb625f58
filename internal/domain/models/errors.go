package models

import "errors"

var (
	// ErrInvalidCycleDate indicates a target date earlier than the cycle start.
	ErrInvalidCycleDate = errors.New("target date precedes cycle start date")
	// ErrNoActiveCycle indicates no active flock cycle exists for the scope.
	ErrNoActiveCycle = errors.New("no active flock cycle for scope")
	// ErrInvalidScope indicates a scope filter that does not belong to the organization.
	ErrInvalidScope = errors.New("scope does not belong to organization")
	// ErrRangeTooLarge indicates a date range beyond the configured cap.
	ErrRangeTooLarge = errors.New("date range exceeds maximum allowed size")
	// ErrClaimConflict indicates the scheduler occurrence is already claimed.
	ErrClaimConflict = errors.New("report occurrence already claimed")
)
