package domain

import "errors"

// Sentinel errors surfaced by repositories and services. Callers match
// them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidInspector = errors.New("user is not a schedulable inspector")

	// ErrAlreadyScheduled means a template already has an open inspection.
	// The manual path surfaces it unless the caller forces a duplicate.
	ErrAlreadyScheduled = errors.New("template already has an open inspection")

	// ErrInvalidTransition means a status update would move an inspection
	// backwards (transitions are PENDING -> IN_PROGRESS -> COMPLETED only).
	ErrInvalidTransition = errors.New("invalid inspection status transition")
)
