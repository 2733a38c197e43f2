package api

import "errors"

var (
	// ErrValidation indicates a malformed or incomplete request, rejected
	// before any provider dispatch
	ErrValidation = errors.New("invalid request")

	// ErrProviderNotFound indicates a direct reference to an unregistered
	// provider id
	ErrProviderNotFound = errors.New("provider not found")

	// ErrNoProviderAvailable indicates that provider fan-out yielded zero
	// usable results
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrApprovalNotFound indicates a gate operation on an unknown interrupt
	ErrApprovalNotFound = errors.New("approval interrupt not found")

	// ErrApprovalInvalidState indicates a gate operation on an interrupt
	// that is no longer pending
	ErrApprovalInvalidState = errors.New("approval interrupt not pending")

	// ErrAdapterTransport indicates a single-adapter network or timeout
	// failure; isolated at the aggregation boundary, never batch-fatal
	ErrAdapterTransport = errors.New("adapter transport failure")

	// ErrRunBoundExceeded indicates the routing loop exceeded the configured
	// maximum hop count
	ErrRunBoundExceeded = errors.New("workflow hop bound exceeded")

	// ErrRunNotFound indicates a resume attempt for an unknown or
	// non-suspended run
	ErrRunNotFound = errors.New("run not found")
)
