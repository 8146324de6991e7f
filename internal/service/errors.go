package service

import (
	"errors"

	"github.com/campusq/queuedesk/internal/repository"
)

// Business rejections surfaced to callers. All of these are expected,
// recoverable conditions; storage failures are wrapped separately and are
// the only class treated as fatal to the operation.
var (
	ErrDuplicateBooking     = errors.New("student already holds an active booking for this slot")
	ErrTimeConflict         = errors.New("student already has a booking at this time")
	ErrPastBooking          = errors.New("cannot act on a past booking")
	ErrPastDate             = errors.New("cannot use a past date")
	ErrAlreadyInTargetState = errors.New("booking is already in the requested state")
	ErrAccountRestricted    = errors.New("account is flagged or suspended")
	ErrCounterInactive      = errors.New("counter not found or inactive")
	ErrEmptyReason          = errors.New("a rejection reason is required")
	ErrMissingProof         = errors.New("a proof document is required")
	ErrNotFaculty           = errors.New("operation requires a faculty caller")
	ErrNotStudent           = errors.New("operation requires a student or parent caller")
)

// Re-exported storage conditions so callers branch on one package.
var (
	ErrNotFound         = repository.ErrNotFound
	ErrSlotFull         = repository.ErrSlotFull
	ErrAlreadyProcessed = repository.ErrAlreadyProcessed
	ErrAlreadyPending   = repository.ErrAlreadyPending
)
