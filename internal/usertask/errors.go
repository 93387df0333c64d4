package usertask

import "errors"

var (
	// ErrTaskNotFound is returned when no active task has the requested key.
	ErrTaskNotFound = errors.New("task not found")

	// ErrForbidden is returned when the caller is not the task's assignee.
	ErrForbidden = errors.New("task is assigned to another user")

	// ErrMissingAssignee is returned when a listing or completion names no assignee.
	ErrMissingAssignee = errors.New("assignee is required")

	// ErrAlreadyStarted is returned by Start on a registry that was started before.
	ErrAlreadyStarted = errors.New("registry already started")
)
