package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserProvider is the credential verifier: it resolves identifiers to alive
// accounts, checks passwords, records lockout failures, and answers the
// account-state gate. Not-found and wrong-password both come back as
// ErrAuthenticationFailed so callers cannot enumerate identifiers.
type UserProvider struct {
	users   Users
	lockout *LockoutPolicy
	hasher  PasswordAuthenticator
	logger  Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(users Users, lockout *LockoutPolicy, hasher PasswordAuthenticator) *UserProvider {
	return &UserProvider{
		users:   users,
		lockout: lockout,
		hasher:  hasher,
		logger:  defLogger{},
	}
}

func (u *UserProvider) WithLogger(logger Logger) *UserProvider {
	if logger != nil {
		u.logger = logger
	}
	return u
}

// VerifyCredentials resolves the identifier and verifies the password. A
// password mismatch increments the lockout tally before failing. The account
// state gate runs separately in CanAuthenticate so the caller controls what
// each failure reveals.
func (u *UserProvider) VerifyCredentials(ctx context.Context, identifier, password string) (*User, error) {
	// identifiers are email addresses; anything else cannot match an
	// account, so skip the lookup
	if !IsEmail(identifier) {
		return nil, ErrAuthenticationFailed
	}

	user, err := u.users.GetAliveByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		if IsIdentityAnomaly(err) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if _, err2 := u.lockout.RecordFailure(ctx, user.ID); err2 != nil {
			return nil, err2
		}
		return nil, ErrAuthenticationFailed
	}

	return user, nil
}

// CanAuthenticate is the eligibility gate: alive, activated, and not locked.
func (u *UserProvider) CanAuthenticate(ctx context.Context, user *User) (bool, error) {
	if user == nil || !user.IsAlive() || !user.Active {
		return false, nil
	}

	locked, err := u.lockout.IsLocked(ctx, user.ID)
	if err != nil {
		return false, err
	}

	return !locked, nil
}

// FindByIdentifier resolves an identifier without verifying credentials.
func (u *UserProvider) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	user, err := u.users.GetAliveByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return user, nil
}
