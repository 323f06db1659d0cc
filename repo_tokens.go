package account

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeCredentialTokenSQL marks a token used in one compare-and-set step:
// the predicate and the write are a single statement, so of two racing
// consumers exactly one sees a row updated.
var ConsumeCredentialTokenSQL = `UPDATE "credential_tokens"
SET
	"deleted_at" = ?
WHERE
	"id" = ?
AND "deleted_at" IS NULL;`

var SupersedeCredentialTokensSQL = `UPDATE "credential_tokens"
SET
	"deleted_at" = ?
WHERE
	"user_id" = ?
AND "kind" = ?
AND "deleted_at" IS NULL;`

type CredentialTokens interface {
	repository.Repository[*CredentialToken]

	FindUsable(ctx context.Context, tokenHash string, kind TokenKind, now time.Time) (*CredentialToken, error)
	FindUsableTx(ctx context.Context, tx bun.IDB, tokenHash string, kind TokenKind, now time.Time) (*CredentialToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedAt time.Time) error
	SupersedeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind, at time.Time) error
}

type credentialTokens struct {
	repository.Repository[*CredentialToken]
	db *bun.DB
}

var _ CredentialTokens = (*credentialTokens)(nil)

func NewCredentialTokensRepository(db *bun.DB) CredentialTokens {
	repo := repository.NewRepository[*CredentialToken](db, repository.ModelHandlers[*CredentialToken]{
		NewRecord: func() *CredentialToken { return &CredentialToken{} },
		GetID: func(t *CredentialToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *CredentialToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token_hash"
		},
	})

	return &credentialTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *credentialTokens) FindUsable(ctx context.Context, tokenHash string, kind TokenKind, now time.Time) (*CredentialToken, error) {
	return a.FindUsableTx(ctx, a.db, tokenHash, kind, now)
}

// FindUsableTx looks up an unconsumed, unexpired token by digest and kind.
// Missing, expired, consumed, and wrong-kind rows all resolve to the same
// not-found result; callers must not leak which case occurred.
func (a *credentialTokens) FindUsableTx(ctx context.Context, tx bun.IDB, tokenHash string, kind TokenKind, now time.Time) (*CredentialToken, error) {
	record := &CredentialToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", tokenHash).
		Where("?TableAlias.kind = ?", kind).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *credentialTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedAt time.Time) error {
	res, err := tx.NewRaw(ConsumeCredentialTokenSQL, usedAt, id).Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		// lost the race or token was already used
		return ErrTokenInvalid
	}

	return nil
}

func (a *credentialTokens) SupersedeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind, at time.Time) error {
	_, err := tx.NewRaw(SupersedeCredentialTokensSQL, at, userID, kind).Exec(ctx)
	return err
}
