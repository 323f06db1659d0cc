package account

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordFailedLoginSQL increments the per-account failure tally in a single
// upsert so concurrent failed attempts cannot lose updates. The row is
// created lazily on the first failure; the lock flips when the tally reaches
// the configured maximum and stays set no matter how the counter moves.
var RecordFailedLoginSQL = `INSERT INTO "login_lockouts" ("user_id", "attempts", "locked", "updated_at")
VALUES (?, 1, ?, ?)
ON CONFLICT ("user_id") DO UPDATE SET
	"attempts" = "login_lockouts"."attempts" + 1,
	"locked" = "login_lockouts"."locked" OR ("login_lockouts"."attempts" + 1 >= ?),
	"updated_at" = EXCLUDED."updated_at"
RETURNING "attempts", "locked";`

var ResetLoginAttemptsSQL = `UPDATE "login_lockouts"
SET
	"attempts" = 0,
	"updated_at" = ?
WHERE
	"user_id" = ?;`

var UnlockLoginLockoutSQL = `UPDATE "login_lockouts"
SET
	"attempts" = 0,
	"locked" = ?,
	"updated_at" = ?
WHERE
	"user_id" = ?;`

type Lockouts interface {
	Get(ctx context.Context, userID uuid.UUID) (*LoginLockout, error)
	GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*LoginLockout, error)
	IsLocked(ctx context.Context, userID uuid.UUID) (bool, error)

	RecordFailure(ctx context.Context, userID uuid.UUID, maxAttempts int) (*LoginLockout, error)
	RecordFailureTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, maxAttempts int) (*LoginLockout, error)
	ResetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	Unlock(ctx context.Context, userID uuid.UUID) error
}

type lockouts struct {
	db *bun.DB
}

var _ Lockouts = (*lockouts)(nil)

func NewLockoutsRepository(db *bun.DB) Lockouts {
	return &lockouts{db: db}
}

func (a *lockouts) Get(ctx context.Context, userID uuid.UUID) (*LoginLockout, error) {
	return a.GetTx(ctx, a.db, userID)
}

func (a *lockouts) GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*LoginLockout, error) {
	record := &LoginLockout{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// IsLocked treats a missing row as unlocked: the row only exists once an
// attempt has failed.
func (a *lockouts) IsLocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	record, err := a.Get(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return record.Locked, nil
}

func (a *lockouts) RecordFailure(ctx context.Context, userID uuid.UUID, maxAttempts int) (*LoginLockout, error) {
	return a.RecordFailureTx(ctx, a.db, userID, maxAttempts)
}

func (a *lockouts) RecordFailureTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, maxAttempts int) (*LoginLockout, error) {
	now := time.Now()
	record := &LoginLockout{
		UserID:    userID,
		UpdatedAt: &now,
	}

	err := tx.NewRaw(
		RecordFailedLoginSQL,
		userID, 1 >= maxAttempts, now, maxAttempts,
	).Scan(ctx, &record.Attempts, &record.Locked)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (a *lockouts) ResetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewRaw(ResetLoginAttemptsSQL, time.Now(), userID).Exec(ctx)
	return err
}

// Unlock clears the lock flag and the tally. This is the administrative
// unlock path; the login flow never calls it.
func (a *lockouts) Unlock(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.NewRaw(UnlockLoginLockoutSQL, false, time.Now(), userID).Exec(ctx)
	return err
}
