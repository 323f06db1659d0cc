package account

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Email       string `json:"email" example:"pepe.rone@example.com" doc:"Account email, unique among alive accounts."`
	Password    string `json:"password" example:"some_secret_word" doc:"Cleartext password, hashed before storage."`
	DisplayName string `json:"display_name" example:"Pepe Rone" doc:"Public profile display name."`
	Location    string `json:"location,omitempty" doc:"Optional profile location."`
	SkillTags   string `json:"skill_tags,omitempty" doc:"Optional comma separated skill tags."`
	UseHashid   bool
	OnResponse  func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&e.DisplayName, validation.Length(0, 64)),
	)
}

type RegisterAccountResponse struct {
	User  *User
	Token *CredentialToken
}

// RegisterAccountHandler creates an inactive account, its profile record,
// and an activation token in one atomic unit, then hands the raw secret to
// the delivery collaborator. A delivery failure is reported as a warning and
// never rolls the registration back; the user can request a resend instead.
type RegisterAccountHandler struct {
	repo     RepositoryManager
	tokens   TokenStore
	hasher   PasswordAuthenticator
	mailer   Mailer
	cfg      Config
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager, tokens TokenStore, cfg Config) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		tokens:   tokens,
		hasher:   NewHasher(cfg.GetPasswordHashCost()),
		mailer:   normalizeMailer(nil),
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

// WithActivitySink configures an ActivitySink for emitting audit events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithMailer sets the delivery collaborator.
func (h *RegisterAccountHandler) WithMailer(mailer Mailer) *RegisterAccountHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid registration payload")
	}

	resp := &RegisterAccountResponse{}
	var rawToken string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetAliveByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateEmail.WithMetadata(map[string]any{
				"email": NormalizeEmail(event.Email),
			})
		} else if IsIdentityAnomaly(err) {
			// the email is already taken more than once; refuse to add a
			// third account on top of the integrity violation
			h.logger.Error("registration email matched multiple accounts", "email", NormalizeEmail(event.Email))
			return ErrDuplicateEmail.WithMetadata(map[string]any{
				"email": NormalizeEmail(event.Email),
			})
		} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Email:        event.Email,
			PasswordHash: hash,
			Active:       false,
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(NormalizeEmail(event.Email)); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		// explicit companion record, no signal/hook indirection
		profile := &UserProfile{
			UserID:      user.ID,
			DisplayName: displayNameOrDefault(event.DisplayName, user.Email),
			Location:    event.Location,
			SkillTags:   event.SkillTags,
		}
		if _, err = h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user profile")
		}
		user.Profile = profile

		ttl := time.Duration(h.cfg.GetActivationTokenTTL()) * time.Hour
		raw, token, err := h.tokens.IssueTx(ctx, tx, user.ID, TokenKindActivation, ttl)
		if err != nil {
			return err
		}

		rawToken = raw
		resp.User = user
		resp.Token = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	h.deliverActivation(ctx, resp.User, rawToken)
	h.recordRegistration(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterAccountHandler) deliverActivation(ctx context.Context, user *User, rawToken string) {
	err := h.mailer.Deliver(ctx, user.Email, TemplateActivation, map[string]any{
		"token":        rawToken,
		"display_name": user.Profile.DisplayName,
	})
	if err != nil {
		h.logger.Warn("activation mail delivery failed", "user_id", user.ID.String(), "error", err)
	}
}

func (h *RegisterAccountHandler) recordRegistration(ctx context.Context, user *User) {
	err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventAccountRegistered,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: h.now(),
	})
	if err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}

func displayNameOrDefault(displayName, email string) string {
	if displayName != "" {
		return displayName
	}

	if strings.Contains(email, "@") {
		return strings.Split(email, "@")[0]
	}

	return email
}
