package velmoadmin

import "errors"

var (
	// ErrAccessDenied is returned when the admin access check resolves
	// and reports the caller is not an admin.
	ErrAccessDenied = errors.New("velmoadmin: access denied, contact an administrator")

	// ErrAccessUnverified is returned when neither the access-check RPC
	// nor the membership fallback could establish the caller's role.
	ErrAccessUnverified = errors.New("velmoadmin: could not verify access")

	// ErrNotSignedIn is returned by operations that need a session when
	// no user is signed in.
	ErrNotSignedIn = errors.New("velmoadmin: not signed in")

	// ErrNotFound is returned by detail queries when the entity does not
	// exist.
	ErrNotFound = errors.New("velmoadmin: entity not found")

	// ErrValidation is the base error for client-side validation
	// failures caught before any remote call.
	ErrValidation = errors.New("velmoadmin: validation failed")
)
