package activity

import (
	"context"
	"errors"
)

// DefaultListLimit caps ListByUser when the caller passes no limit.
const DefaultListLimit = 50

// MaxListLimit is the largest page ListByUser will return.
const MaxListLimit = 500

// ErrInvalidEvent is returned when an event is missing identifying fields.
var ErrInvalidEvent = errors.New("invalid activity event")

// Repo defines persistence operations for activity events.
type Repo interface {
	Append(ctx context.Context, e Event) error
	// ListByUser returns the newest events first.
	ListByUser(ctx context.Context, userName string, limit int) ([]Event, error)
}

func validate(e Event) error {
	if e.ID == "" || e.UserName == "" || e.ObjectKey == "" {
		return ErrInvalidEvent
	}
	switch e.Action {
	case ActionUpload, ActionDelete:
		return nil
	default:
		return ErrInvalidEvent
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
