package flash

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Locked serialises access to an Adapter shared by several goroutines.
// Waiting for the adapter honours context cancellation; an operation that
// already reached the device runs to completion.
type Locked struct {
	sem *semaphore.Weighted
	a   *Adapter
}

// NewLocked wraps a. The caller must stop using a directly.
func NewLocked(a *Adapter) *Locked {
	return &Locked{
		sem: semaphore.NewWeighted(1),
		a:   a,
	}
}

// Do runs fn with exclusive access to the adapter.
func (l *Locked) Do(ctx context.Context, fn func(a *Adapter) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	return fn(l.a)
}

// Init runs Adapter.Init with exclusive access.
func (l *Locked) Init(ctx context.Context) error {
	return l.Do(ctx, func(a *Adapter) error {
		return a.Init(ctx)
	})
}

// Read runs Adapter.Read with exclusive access.
func (l *Locked) Read(ctx context.Context, offset uint32, out []byte) error {
	return l.Do(ctx, func(a *Adapter) error {
		return a.Read(ctx, offset, out)
	})
}

// Write runs Adapter.Write with exclusive access.
func (l *Locked) Write(ctx context.Context, offset uint32, data []byte) error {
	return l.Do(ctx, func(a *Adapter) error {
		return a.Write(ctx, offset, data)
	})
}

// Erase runs Adapter.Erase with exclusive access.
func (l *Locked) Erase(ctx context.Context, from, to uint32) error {
	return l.Do(ctx, func(a *Adapter) error {
		return a.Erase(ctx, from, to)
	})
}

// Stats returns Adapter.Stats taken with exclusive access.
func (l *Locked) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := l.Do(ctx, func(a *Adapter) error {
		st = a.Stats()
		return nil
	})
	return st, err
}

// Capacity returns the adapter capacity. It needs no lock, the geometry
// is fixed at construction.
func (l *Locked) Capacity() int { return l.a.Capacity() }

// Geometry returns the adapter geometry.
func (l *Locked) Geometry() Geometry { return l.a.Geometry() }
