package watch

import (
	"context"
	"time"
)

// Store persists watch documents. Every mutation is a per-document
// read-modify-write; callers that act on a watch must re-read it first.
type Store interface {
	// Create inserts req after enforcing CheckLimits atomically per user.
	Create(ctx context.Context, req *Request) error
	// Get returns a watch by id, including soft-deleted ones.
	Get(ctx context.Context, id string) (*Request, error)
	// ListByUser returns a user's watches, newest first.
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]Request, error)
	// FetchActivePending returns every active, PENDING, non-deleted watch,
	// oldest first.
	FetchActivePending(ctx context.Context) ([]Request, error)
	// UpdateStatus applies u only while the stored watch is still pending;
	// otherwise it returns ErrNotPending.
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) error
	// SoftDelete marks a terminal watch deleted. A PENDING watch yields a
	// *ValidationError.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}
