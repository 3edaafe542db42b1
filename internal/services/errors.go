// Package services defines the business logic for identity resolution,
// insurance claims, PDI inspections, the package ledger, and notifications.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Identity-related errors.
var (
	// ErrIdentityConflict is returned when the supplied email matches one
	// user while the supplied mobile matches a different user. The ambiguity
	// is surfaced instead of silently picking one.
	ErrIdentityConflict = errors.New("email and mobile match different users")

	// ErrCustomerUnresolved is returned by operations that require a definite
	// account (walk-in claims) when no user matched and none could be created
	// because no email was supplied.
	ErrCustomerUnresolved = errors.New("customer could not be resolved to an account")
)

// Claim-related errors.
var (
	// ErrClaimNotFound indicates that the requested claim does not exist.
	ErrClaimNotFound = errors.New("claim not found")

	// ErrUnknownClaimStatus is returned when an admin update carries a status
	// string outside the known set. Transitions themselves are advisory and
	// not validated; only the vocabulary is.
	ErrUnknownClaimStatus = errors.New("unknown claim status")

	// ErrClaimNumberExhausted is returned when claim creation keeps colliding
	// on the claim number unique index after several regenerate attempts.
	ErrClaimNumberExhausted = errors.New("could not allocate a unique claim number")
)

// Inspection-related errors.
var (
	// ErrInspectionNotFound indicates that the requested report does not exist.
	ErrInspectionNotFound = errors.New("inspection not found")

	// ErrNoResponses is returned when a report is submitted without a single
	// checklist response.
	ErrNoResponses = errors.New("inspection has no checklist responses")

	// ErrInvalidResponseStatus is returned when a checklist response carries
	// a verdict outside PASS, FAIL, WARN.
	ErrInvalidResponseStatus = errors.New("response status must be PASS, FAIL or WARN")
)

// Checklist-related errors.
var (
	// ErrSectionNotFound indicates a missing checklist section.
	ErrSectionNotFound = errors.New("section not found")

	// ErrItemNotFound indicates a missing checklist item.
	ErrItemNotFound = errors.New("item not found")

	// ErrEmptyLabel is returned when a section title or item label is blank.
	ErrEmptyLabel = errors.New("label must not be empty")
)

// Notification-related errors.
var (
	// ErrNotificationNotFound indicates a missing notification (or one owned
	// by another user).
	ErrNotificationNotFound = errors.New("notification not found")
)

// Package-ledger errors.
var (
	// ErrUserNotFound indicates the target user of a package grant is missing.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPackageCount is returned when a grant carries a non-positive
	// credit count.
	ErrInvalidPackageCount = errors.New("package count must be positive")
)
