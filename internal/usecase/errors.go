package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrTransaction           = errors.New("transaction failed")
	ErrSchedulerTransition   = errors.New("scheduler transition failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
