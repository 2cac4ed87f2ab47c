package cryptox

import (
	"context"
	"runtime"
	"time"
)

// KDFPool bounds how many key derivations run at once so a burst of logins
// cannot starve the rest of the process of CPU.
type KDFPool struct {
	slots chan struct{}

	// Observe, when set, receives the duration of every completed job.
	Observe func(op string, d time.Duration)
}

// NewKDFPool returns a pool running at most workers derivations concurrently.
// Workers that are not positive default to GOMAXPROCS.
func NewKDFPool(workers int) *KDFPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &KDFPool{slots: make(chan struct{}, workers)}
}

// Size reports the pool capacity.
func (p *KDFPool) Size() int {
	return cap(p.slots)
}

// Do runs fn once a slot is free. It returns ctx.Err() if ctx is done before
// a slot is acquired; a started job always runs to completion.
func (p *KDFPool) Do(ctx context.Context, op string, fn func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()

	start := time.Now()
	fn()
	if p.Observe != nil {
		p.Observe(op, time.Since(start))
	}
	return nil
}

// HashPassword hashes password with h on the pool.
func (p *KDFPool) HashPassword(ctx context.Context, h *PasswordHasher, password string) (string, error) {
	var (
		hash string
		err  error
	)
	if perr := p.Do(ctx, "hash", func() { hash, err = h.Hash(password) }); perr != nil {
		return "", perr
	}
	return hash, err
}

// VerifyPassword verifies password against stored with h on the pool.
func (p *KDFPool) VerifyPassword(ctx context.Context, h *PasswordHasher, password, stored string) (bool, error) {
	var ok bool
	if err := p.Do(ctx, "verify", func() { ok = h.Verify(password, stored) }); err != nil {
		return false, err
	}
	return ok, nil
}
