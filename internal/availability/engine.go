// Package availability implements the conflict-detection engine deciding
// whether a requested window is free of overlapping active reservations.
package availability

import (
	"context"

	"github.com/google/uuid"

	"space-booking-backend/internal/store"
	"space-booking-backend/internal/timewindow"
)

// Engine answers availability queries over the reservation store. It never
// mutates state; callers that need check-then-act atomicity construct it over
// a transaction-scoped Store.
type Engine struct {
	store store.Store
}

// NewEngine creates an engine over the given store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// IsAvailable reports whether the window is free for the space. exclude, when
// set, skips that reservation so edits do not conflict with themselves.
// "Unavailable" is a false result, not an error; errors are store failures.
func (e *Engine) IsAvailable(ctx context.Context, spaceID uuid.UUID, w timewindow.Window, exclude *uuid.UUID) (bool, error) {
	candidates, err := e.store.FindActiveOverlapCandidates(ctx, spaceID, w.StartDate, w.EndDate, exclude)
	if err != nil {
		return false, err
	}

	for _, c := range candidates {
		if w.Overlaps(c.Window()) {
			return false, nil
		}
	}
	return true, nil
}
