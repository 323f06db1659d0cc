package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Auther runs the login decision procedure: identity lookup, credential
// check, account-state gate, counter reset, grant issuance. A grant is only
// ever returned after every step has passed; the counter reset and the
// last-authenticated timestamp land in one transaction.
type Auther struct {
	provider IdentityProvider
	repo     RepositoryManager
	lockout  *LockoutPolicy
	grants   GrantIssuer
	tokens   TokenService
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator wires the default provider, lockout policy, and JWT grant
// issuer from configuration.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	lockout := NewLockoutPolicy(repo.Lockouts(), cfg.GetMaxLoginAttempts())
	hasher := NewHasher(cfg.GetPasswordHashCost())
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider: NewUserProvider(repo.Users(), lockout, hasher),
		repo:     repo,
		lockout:  lockout,
		grants:   tokenService,
		tokens:   tokenService,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithGrantIssuer swaps the grant mechanism (e.g. a revocation-aware issuer).
func (s *Auther) WithGrantIssuer(issuer GrantIssuer) *Auther {
	if issuer != nil {
		s.grants = issuer
	}
	return s
}

// WithIdentityProvider overrides the default provider.
func (s *Auther) WithIdentityProvider(provider IdentityProvider) *Auther {
	if provider != nil {
		s.provider = provider
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.provider.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		if IsIdentityAnomaly(err) {
			// data-integrity violation: alert operators, tell the caller
			// nothing beyond the generic failure
			s.logger.Error("identifier resolved to multiple accounts", "identifier", identifier)
			s.emitAuthEvent(ctx, ActivityEventIdentityAnomaly, ActorRef{Type: "unknown"}, "", map[string]any{
				"identifier": identifier,
			})
			return "", ErrAuthenticationFailed
		}

		s.logger.Info("login credential check failed", "identifier", identifier)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	ok, err := s.provider.CanAuthenticate(ctx, user)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to evaluate account state")
	}

	if !ok {
		s.logger.Warn("login blocked by account state", "user_id", user.ID.String())
		s.emitAuthEvent(ctx, ActivityEventAccountLocked, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": identifier,
		})
		return "", ErrAccountLocked
	}

	loggedInAt := s.now()
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.lockout.RecordSuccessTx(ctx, tx, user.ID); err != nil {
			return err
		}
		return s.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user.ID, loggedInAt)
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize login")
	}
	user.LoggedInAt = &loggedInAt

	grant, err := s.grants.IssueGrant(ctx, NewIdentityFromUser(user))
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"identifier": identifier,
	})

	return grant, nil
}

func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	id, err := session.GetUserUUID()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "session carries no valid user id")
	}

	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		s.logger.Error("IdentityFromSession lookup failed", "error", err)
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activity)
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
