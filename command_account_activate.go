package account

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Token      string `json:"token" doc:"Raw activation secret from the delivery email."`
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

func (e ActivateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required, validation.Length(16, 128)),
	)
}

type ActivateAccountResponse struct {
	User *User
}

// ActivateAccountHandler turns an inactive account active by consuming its
// activation token. Token consumption and the activation flip share one
// transaction, so a token is never spent without the account becoming active.
type ActivateAccountHandler struct {
	repo     RepositoryManager
	tokens   TokenStore
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewActivateAccountHandler(repo RepositoryManager, tokens TokenStore) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:     repo,
		tokens:   tokens,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) WithActivitySink(sink ActivitySink) *ActivateAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return ErrTokenInvalid
	}

	resp := &ActivateAccountResponse{}
	alreadyActive := false

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.tokens.ValidateTx(ctx, tx, event.Token, TokenKindActivation)
		if err != nil {
			return err
		}

		user, err := h.repo.Users().GetAliveByIDTx(ctx, tx, token.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for activation")
		}

		// a token against an already active account is still spent so it
		// cannot be replayed later
		if err := h.tokens.ConsumeTx(ctx, tx, token); err != nil {
			return err
		}

		if user.Active {
			alreadyActive = true
			resp.User = user
			return nil
		}

		user, err = h.repo.Users().ActivateTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	if alreadyActive {
		return ErrAlreadyActive.WithMetadata(map[string]any{
			"user_id": resp.User.ID.String(),
		})
	}

	h.recordActivation(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ActivateAccountHandler) recordActivation(ctx context.Context, user *User) {
	err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventAccountActivated,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: h.now(),
	})
	if err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
