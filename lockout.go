package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LockoutPolicy tracks failed login attempts per account and flips the lock
// flag once the tally reaches the configured maximum. Recording is atomic at
// the store level; a successful authentication resets the tally but never
// clears the flag.
type LockoutPolicy struct {
	lockouts    Lockouts
	maxAttempts int
	logger      Logger
}

// NewLockoutPolicy returns a policy over the lockouts repository. The
// threshold comes from configuration, never a constant.
func NewLockoutPolicy(lockouts Lockouts, maxAttempts int) *LockoutPolicy {
	return &LockoutPolicy{
		lockouts:    lockouts,
		maxAttempts: maxAttempts,
		logger:      defLogger{},
	}
}

func (p *LockoutPolicy) WithLogger(logger Logger) *LockoutPolicy {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// MaxAttempts exposes the configured threshold
func (p *LockoutPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// RecordFailure increments the account's attempt tally and reports the
// resulting state. Safe under concurrent failures for the same account.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, userID uuid.UUID) (*LoginLockout, error) {
	record, err := p.lockouts.RecordFailure(ctx, userID, p.maxAttempts)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login failure")
	}

	if record.Locked {
		p.logger.Warn("account locked after repeated failures", "user_id", userID.String(), "attempts", record.Attempts)
	}

	return record, nil
}

// RecordSuccessTx resets the attempt tally to zero inside the caller's
// transaction. The lock flag is left untouched: a locked account stays
// locked even if the correct password shows up.
func (p *LockoutPolicy) RecordSuccessTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	if err := p.lockouts.ResetTx(ctx, tx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset login attempts")
	}
	return nil
}

// IsLocked reports the lock flag; absent rows count as unlocked.
func (p *LockoutPolicy) IsLocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	locked, err := p.lockouts.IsLocked(ctx, userID)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read lockout state")
	}
	return locked, nil
}

// Unlock is the administrative reset: clears the tally and the flag.
func (p *LockoutPolicy) Unlock(ctx context.Context, userID uuid.UUID) error {
	if err := p.lockouts.Unlock(ctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to unlock account")
	}
	return nil
}
