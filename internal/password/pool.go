package password

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many hash computations run at once. Hashing is
// deliberately expensive; without a bound a burst of logins would pin
// every core and starve request handling.
type Pool struct {
	hasher *Hasher
	sem    *semaphore.Weighted
	size   int
}

// NewPool wraps hasher with a limit of workers concurrent computations.
// workers <= 0 selects GOMAXPROCS.
func NewPool(
	hasher *Hasher,
	workers int,
) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(workers)),
		size:   workers,
	}
}

func (p *Pool) Size() int { return p.size }

func (p *Pool) Hash(
	ctx context.Context,
	plaintext string,
) (
	string,
	error,
) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(plaintext)
}

func (p *Pool) Verify(
	ctx context.Context,
	plaintext string,
	encoded string,
) (
	bool,
	error,
) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	return p.hasher.Verify(plaintext, encoded)
}

// NeedsRehash only parses the encoded hash, so it skips the semaphore.
func (p *Pool) NeedsRehash(encoded string) bool {
	return p.hasher.NeedsRehash(encoded)
}
