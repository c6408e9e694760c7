package driven

import "context"

// DocumentLocker serialises work on a single document id.
// Different ids never block each other.
type DocumentLocker interface {
	// Lock blocks until the lock for id is held or ctx is done.
	Lock(ctx context.Context, id string) (unlock func(), err error)

	// TryLock acquires the lock for id without waiting.
	// ok is false if another holder owns it.
	TryLock(ctx context.Context, id string) (unlock func(), ok bool, err error)
}
