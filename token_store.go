package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// tokenSecretBytes is the entropy of a raw token secret. 32 bytes gives the
// 256-bit minimum the credential contract requires.
const tokenSecretBytes = 32

// TokenStore issues, validates, and consumes hashed single-use tokens.
// Raw secrets exist only in the return value of Issue; the store persists
// digests exclusively.
type TokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, *CredentialToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, *CredentialToken, error)
	Validate(ctx context.Context, rawSecret string, kind TokenKind) (*CredentialToken, error)
	ValidateTx(ctx context.Context, tx bun.IDB, rawSecret string, kind TokenKind) (*CredentialToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, token *CredentialToken) error
}

type tokenStore struct {
	repo      RepositoryManager
	supersede bool
	logger    Logger
	now       func() time.Time
}

var _ TokenStore = (*tokenStore)(nil)

type TokenStoreOption func(*tokenStore)

// WithTokenStoreClock injects a custom clock (useful for tests).
func WithTokenStoreClock(clock func() time.Time) TokenStoreOption {
	return func(ts *tokenStore) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenStoreSupersede controls whether issuing a token invalidates the
// account's prior unconsumed tokens of the same kind. Disabled by default:
// superseding lets anyone who knows an email address repeatedly void the
// legitimate holder's pending token.
func WithTokenStoreSupersede(supersede bool) TokenStoreOption {
	return func(ts *tokenStore) {
		ts.supersede = supersede
	}
}

// WithTokenStoreLogger overrides the logger.
func WithTokenStoreLogger(logger Logger) TokenStoreOption {
	return func(ts *tokenStore) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenStore returns a TokenStore over the shared repositories.
func NewTokenStore(repo RepositoryManager, opts ...TokenStoreOption) TokenStore {
	ts := &tokenStore{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

func (ts *tokenStore) Issue(ctx context.Context, userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, *CredentialToken, error) {
	var raw string
	var record *CredentialToken

	err := ts.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		raw, record, err = ts.IssueTx(ctx, tx, userID, kind, ttl)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	return raw, record, nil
}

func (ts *tokenStore) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, *CredentialToken, error) {
	raw, err := newTokenSecret()
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token secret")
	}

	now := ts.now()

	if ts.supersede {
		if err := ts.repo.CredentialTokens().SupersedeTx(ctx, tx, userID, kind, now); err != nil {
			return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to supersede prior tokens")
		}
	}

	record := &CredentialToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: HashTokenSecret(raw),
		ExpiresAt: now.Add(ttl),
	}

	record, err = ts.repo.CredentialTokens().CreateTx(ctx, tx, record)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist credential token")
	}

	return raw, record, nil
}

func (ts *tokenStore) Validate(ctx context.Context, rawSecret string, kind TokenKind) (*CredentialToken, error) {
	record, err := ts.repo.CredentialTokens().FindUsable(ctx, HashTokenSecret(rawSecret), kind, ts.now())
	if err != nil {
		return nil, uniformTokenError(err)
	}

	return record, nil
}

func (ts *tokenStore) ValidateTx(ctx context.Context, tx bun.IDB, rawSecret string, kind TokenKind) (*CredentialToken, error) {
	record, err := ts.repo.CredentialTokens().FindUsableTx(ctx, tx, HashTokenSecret(rawSecret), kind, ts.now())
	if err != nil {
		return nil, uniformTokenError(err)
	}

	return record, nil
}

// ConsumeTx marks the token used at now. Run it inside the same transaction
// as the business mutation it gates; the compare-and-set update guarantees a
// concurrent duplicate use fails with ErrTokenInvalid.
func (ts *tokenStore) ConsumeTx(ctx context.Context, tx bun.IDB, token *CredentialToken) error {
	if token == nil {
		return ErrTokenInvalid
	}

	usedAt := ts.now()
	if err := ts.repo.CredentialTokens().ConsumeTx(ctx, tx, token.ID, usedAt); err != nil {
		return uniformTokenError(err)
	}

	token.DeletedAt = &usedAt
	return nil
}

// uniformTokenError collapses every token failure into the one unified error
// so callers cannot tell never-existed from expired or already-used.
func uniformTokenError(err error) error {
	if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) || IsTokenInvalid(err) {
		return ErrTokenInvalid
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "credential token lookup failed")
}

func newTokenSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashTokenSecret returns the hex SHA-256 digest stored in place of the raw
// secret.
func HashTokenSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
