// Package lock serializes operations over ledger accounts. An operation
// names every account it touches up front and holds all of them until it
// finishes, which is how records get exclusive ownership per operation.
package lock

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
)

// ErrLockTimeout is returned when an account cannot be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

type accountMutex struct {
	mu sync.Mutex
}

// AccountLock provides per-account locking.
type AccountLock struct {
	locks sync.Map // map[solana.PublicKey]*accountMutex
	pool  sync.Pool
}

// NewAccountLock creates a new AccountLock instance.
func NewAccountLock() *AccountLock {
	return &AccountLock{
		pool: sync.Pool{
			New: func() any {
				return &accountMutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for an account.
func (l *AccountLock) getLock(key solana.PublicKey) *accountMutex {
	if v, ok := l.locks.Load(key); ok {
		return v.(*accountMutex)
	}

	newLock := l.pool.Get().(*accountMutex)
	actual, loaded := l.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first
		l.pool.Put(newLock)
	}
	return actual.(*accountMutex)
}

// Lock acquires the lock for one account.
func (l *AccountLock) Lock(key solana.PublicKey) {
	l.getLock(key).mu.Lock()
}

// Unlock releases the lock for one account.
func (l *AccountLock) Unlock(key solana.PublicKey) {
	if v, ok := l.locks.Load(key); ok {
		v.(*accountMutex).mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *AccountLock) TryLock(key solana.PublicKey) bool {
	return l.getLock(key).mu.TryLock()
}

// LockWithTimeout attempts to acquire the lock before timeout or ctx expires.
func (l *AccountLock) LockWithTimeout(ctx context.Context, key solana.PublicKey, timeout time.Duration) bool {
	lock := l.getLock(key)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// ordered returns keys sorted bytewise without duplicates. Acquiring in
// this order keeps two multi-account operations from deadlocking.
func ordered(keys []solana.PublicKey) []solana.PublicKey {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(a, b solana.PublicKey) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(out)
}

// LockAll acquires every account in keys and returns a function that
// releases them.
func (l *AccountLock) LockAll(keys ...solana.PublicKey) (unlock func()) {
	keys = ordered(keys)
	for _, k := range keys {
		l.Lock(k)
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			l.Unlock(keys[i])
		}
	}
}

// WithLock executes fn while holding every account in keys.
func (l *AccountLock) WithLock(keys []solana.PublicKey, fn func() error) error {
	unlock := l.LockAll(keys...)
	defer unlock()
	return fn()
}

// WithLockContext executes fn while holding every account in keys. It
// gives up with ErrLockTimeout if any account cannot be acquired within
// timeout.
func (l *AccountLock) WithLockContext(ctx context.Context, keys []solana.PublicKey, timeout time.Duration, fn func() error) error {
	keys = ordered(keys)
	deadline := time.Now().Add(timeout)

	held := make([]solana.PublicKey, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.Unlock(held[i])
		}
	}()

	for _, k := range keys {
		if !l.LockWithTimeout(ctx, k, time.Until(deadline)) {
			return ErrLockTimeout
		}
		held = append(held, k)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked checks if an account is currently held.
// Note: This is a point-in-time check and may change immediately after.
func (l *AccountLock) IsLocked(key solana.PublicKey) bool {
	if v, ok := l.locks.Load(key); ok {
		lock := v.(*accountMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
