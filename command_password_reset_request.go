package account

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Email of the account to reset."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "account.password_reset.request" }

func (e RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// RequestPasswordResetResponse is only populated when the email resolved to
// an account. Callers must not branch on it in any user-visible way.
type RequestPasswordResetResponse struct {
	User  *User
	Token *CredentialToken
}

// RequestPasswordResetHandler issues a password reset token for the account
// behind an email address. The outcome is indistinguishable to the caller
// whether the email exists or not: unknown addresses complete without error
// and without side effects.
type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	tokens   TokenStore
	mailer   Mailer
	cfg      Config
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewRequestPasswordResetHandler(repo RepositoryManager, tokens TokenStore, cfg Config) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		mailer:   normalizeMailer(nil),
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (h *RequestPasswordResetHandler) WithMailer(mailer Mailer) *RequestPasswordResetHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password reset payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetAliveByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			// unknown address: succeed without a trace the caller can see
			h.logger.Info("password reset requested for unknown email", "email", NormalizeEmail(event.Email))
			return nil
		}
		if IsIdentityAnomaly(err) {
			h.logger.Error("password reset email resolved to multiple accounts", "email", NormalizeEmail(event.Email))
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account for reset")
	}

	if !user.Active {
		// same outward behavior as an unknown address
		h.logger.Info("password reset requested for inactive account", "user_id", user.ID.String())
		return nil
	}

	resp := &RequestPasswordResetResponse{User: user}
	var rawToken string

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ttl := time.Duration(h.cfg.GetPasswordResetTokenTTL()) * time.Hour
		raw, token, err := h.tokens.IssueTx(ctx, tx, user.ID, TokenKindPasswordReset, ttl)
		if err != nil {
			return err
		}

		rawToken = raw
		resp.Token = token
		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset request transaction failed")
	}

	h.deliverReset(ctx, user, rawToken)
	h.recordRequest(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestPasswordResetHandler) deliverReset(ctx context.Context, user *User, rawToken string) {
	err := h.mailer.Deliver(ctx, user.Email, TemplatePasswordReset, map[string]any{
		"token": rawToken,
	})
	if err != nil {
		h.logger.Warn("password reset mail delivery failed", "user_id", user.ID.String(), "error", err)
	}
}

func (h *RequestPasswordResetHandler) recordRequest(ctx context.Context, user *User) {
	err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: h.now(),
	})
	if err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
