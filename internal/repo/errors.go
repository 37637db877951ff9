package repo

import (
	"errors"
	"time"
)

var (
	ErrInvalidProjectID     = errors.New("invalid project ID: cannot be empty")
	ErrInvalidActorID       = errors.New("invalid actor ID: cannot be empty")
	ErrInvalidMessage       = errors.New("invalid message: message cannot be nil")
	ErrInvalidNotification  = errors.New("invalid notification: cannot be nil")
	ErrProjectNotFound      = errors.New("project not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrManagerNotInProject  = errors.New("actor is not a manager of this project")
	ErrLastManager          = errors.New("cannot remove the last manager of a project")
	ErrOperationTimeout     = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)
