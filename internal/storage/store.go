package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"habitforge/internal/model"
)

var (
	// ErrConflict means an optimistic version check failed or the backend
	// refused to serialize the transaction. The whole unit of work may be
	// retried on fresh data.
	ErrConflict = errors.New("storage: transaction conflict")

	ErrNotFound = errors.New("storage: not found")
)

// Store is the persistence collaborator the progression engine runs against.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	// TopByXP returns up to limit progress records ordered by total XP
	// descending, then level descending, then user id.
	TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error)
	Close() error
}

// Tx is one unit of work. Puts are conditional on the Version carried by
// the record (the version that was read); on success the record's Version
// is advanced in place. A stale version yields ErrConflict either at put
// time or at Commit.
type Tx interface {
	GetProgress(ctx context.Context, userID string) (*model.UserProgress, error)
	InsertProgress(ctx context.Context, p *model.UserProgress) error
	PutProgress(ctx context.Context, p *model.UserProgress) error

	GetHabit(ctx context.Context, userID, habitID string) (*model.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]model.Habit, error)
	InsertHabit(ctx context.Context, h *model.Habit) error
	PutHabit(ctx context.Context, h *model.Habit) error

	Commit() error
	Rollback() error
}

// GetOrCreateProgress returns the user's record, inserting defaults on first
// access. A concurrent first insert surfaces as ErrConflict.
func GetOrCreateProgress(ctx context.Context, tx Tx, userID string) (*model.UserProgress, error) {
	p, err := tx.GetProgress(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	p = model.NewUserProgress(userID)
	if err := tx.InsertProgress(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RetryPolicy bounds how often RunInTx re-runs a conflicting transaction.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// RunInTx runs fn inside a fresh transaction, committing on success. While
// the failure is ErrConflict the whole function is re-run on a new
// transaction, up to policy.MaxAttempts. It returns the number of attempts
// made. Any other error aborts immediately after rollback.
func RunInTx(ctx context.Context, s Store, policy RetryPolicy, fn func(tx Tx) error) (int, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := runOnce(ctx, s, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, ErrConflict):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(policy.MaxAttempts)))
	return attempts, err
}

func runOnce(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
