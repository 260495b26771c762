package store

import (
	"context"
	"errors"

	"github.com/glamhair/patglam-agent/internal/dialog"
)

// ErrNotFound is returned by Get for call ids with no session. The store
// never materializes a default session; initialization is the planner's call.
var ErrNotFound = errors.New("session not found")

// Store is the per-call persistence contract. Every operation is scoped by
// call id. The transcript is append-only and only removed together with the
// whole session.
type Store interface {
	// Get returns the session for id or ErrNotFound.
	Get(ctx context.Context, id string) (*dialog.CallSession, error)

	// Put saves the session under its id.
	Put(ctx context.Context, s *dialog.CallSession) error

	// AppendTurn appends one turn to the call's conversation log.
	AppendTurn(ctx context.Context, id string, t dialog.Turn) error

	// Turns returns the call's conversation log in append order.
	Turns(ctx context.Context, id string) ([]dialog.Turn, error)

	// Delete removes the session and its transcript.
	Delete(ctx context.Context, id string) error

	// Consume marks the call's end-of-life processing as done. It returns
	// true exactly once per call id; duplicate terminal notifications see
	// false and must skip summarization and dispatch.
	Consume(ctx context.Context, id string) (bool, error)
}
