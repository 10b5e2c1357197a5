package models

import "errors"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrStatusConflict means the stored status no longer matches the one the
	// write was based on.
	ErrStatusConflict = errors.New("task status was changed by someone else")
)
