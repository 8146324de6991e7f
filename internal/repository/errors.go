package repository

import "errors"

// Storage-level conditions the services branch on. Anything else coming out
// of a repository is an infrastructure failure wrapped with context.
var (
	ErrNotFound         = errors.New("record not found")
	ErrSlotFull         = errors.New("slot capacity exhausted")
	ErrNotHolder        = errors.New("student does not hold a seat in this slot")
	ErrAlreadyProcessed = errors.New("request already processed")
	ErrAlreadyPending   = errors.New("student already has a pending request")
)
