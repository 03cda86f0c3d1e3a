// Package services defines the business logic for the virtual queue and the
// contact-form intake. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Queue-related errors.
var (
	// ErrLocationNotFound indicates that the requested location does not
	// exist or is not accepting customers (inactive locations are
	// indistinguishable from missing ones to the public API).
	ErrLocationNotFound = errors.New("location not found or inactive")

	// ErrAlreadyQueued is returned when a customer phone already holds an
	// active (waiting or notified) entry at the location.
	ErrAlreadyQueued = errors.New("already in queue for this location")

	// ErrEntryNotFound indicates that the requested queue entry does not exist.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrInvalidTransition is returned when a status update names a
	// source/target pair the entry lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when the requester neither owns the
	// entry's location nor holds the admin capability.
	ErrUnauthorized = errors.New("access denied")
)

// Intake-related errors.
var (
	// ErrRateLimited is returned when a client fingerprint has exhausted its
	// admissions for the current window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSubmissionNotFound indicates that the requested contact submission
	// does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Auth-related errors.
var (
	// ErrInvalidCredentials is returned for a bad username/password pair or
	// a disabled account. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrStoreUnavailable wraps transient infrastructure failures (database or
// Redis unreachable). The core never retries these itself: an implicit retry
// of a join could allocate a second position for the same request. Callers
// surface it and decide on retry policy.
var ErrStoreUnavailable = errors.New("store unavailable")
