package service

import (
	"errors"
	"fmt"
)

// The error taxonomy every service operation reports through. Each failure
// wraps exactly one of these sentinels so callers can branch with errors.Is
// and the transport layer can map them to status codes. Nothing is ever
// swallowed: a failure either blocks the mutation or is part of the
// returned outcome.
var (
	// ErrValidation: the request is well-formed but semantically wrong —
	// a split that does not reconcile, zero contributors, negative input.
	ErrValidation = errors.New("validation failed")

	// ErrPermission: the actor is not allowed to perform this operation.
	ErrPermission = errors.New("permission denied")

	// ErrStateConflict: the transition is not legal from the row's current
	// state, including races lost to a concurrent transition.
	ErrStateConflict = errors.New("state conflict")

	// ErrNotFound: a referenced subscription, contributor, user or invite
	// does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrDependency: the durable store or a collaborator failed.
	ErrDependency = errors.New("dependency failure")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func permissionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermission, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func dependencyf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDependency, fmt.Sprintf(format, args...))
}
