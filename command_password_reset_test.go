package account_test

import (
	"context"
	"testing"
	"time"

	account "github.com/sho327/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Known email gets a reset token", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		user := createTestUser(t, repo, "holder@example.com", "password1234", true)

		mailer := &capturingMailer{}
		sink := &capturingSink{}
		handler := account.NewRequestPasswordResetHandler(repo, store, newTestConfig()).
			WithMailer(mailer).
			WithActivitySink(sink)

		var resp *account.RequestPasswordResetResponse
		err := handler.Execute(ctx, account.RequestPasswordResetMessage{
			Email:      "Holder@Example.com",
			OnResponse: func(r *account.RequestPasswordResetResponse) { resp = r },
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, user.ID, resp.Token.UserID)
		assert.Equal(t, account.TokenKindPasswordReset, resp.Token.Kind)

		delivery, ok := mailer.Last()
		require.True(t, ok)
		assert.Equal(t, account.TemplatePasswordReset, delivery.Template)
		raw, ok := delivery.Data["token"].(string)
		require.True(t, ok)

		_, err = store.Validate(ctx, raw, account.TokenKindPasswordReset)
		assert.NoError(t, err)
		assert.Contains(t, sink.Types(), account.ActivityEventPasswordResetRequest)
	})

	t.Run("Unknown email succeeds without side effects", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)

		mailer := &capturingMailer{}
		handler := account.NewRequestPasswordResetHandler(repo, store, newTestConfig()).
			WithMailer(mailer)

		err := handler.Execute(ctx, account.RequestPasswordResetMessage{
			Email: "nobody@example.com",
		})

		assert.NoError(t, err)
		assert.Zero(t, mailer.Count())
	})

	t.Run("Inactive account behaves like an unknown email", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		createTestUser(t, repo, "pending@example.com", "password1234", false)

		mailer := &capturingMailer{}
		handler := account.NewRequestPasswordResetHandler(repo, store, newTestConfig()).
			WithMailer(mailer)

		err := handler.Execute(ctx, account.RequestPasswordResetMessage{
			Email: "pending@example.com",
		})

		assert.NoError(t, err)
		assert.Zero(t, mailer.Count())
	})

	t.Run("Invalid email is rejected", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		handler := account.NewRequestPasswordResetHandler(repo, store, newTestConfig())

		err := handler.Execute(ctx, account.RequestPasswordResetMessage{Email: "not-an-email"})
		assert.Error(t, err)
	})
}

func TestFinalizePasswordReset(t *testing.T) {
	ctx := context.Background()

	requestReset := func(t *testing.T, repo account.RepositoryManager, store account.TokenStore, email string) string {
		t.Helper()

		mailer := &capturingMailer{}
		handler := account.NewRequestPasswordResetHandler(repo, store, newTestConfig()).WithMailer(mailer)

		require.NoError(t, handler.Execute(ctx, account.RequestPasswordResetMessage{Email: email}))

		delivery, ok := mailer.Last()
		require.True(t, ok)
		raw, ok := delivery.Data["token"].(string)
		require.True(t, ok)
		return raw
	}

	t.Run("New password replaces the old one", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		createTestUser(t, repo, "holder@example.com", "old_password_1", true)

		raw := requestReset(t, repo, store, "holder@example.com")

		sink := &capturingSink{}
		handler := account.NewFinalizePasswordResetHandler(repo, store, newTestConfig()).
			WithActivitySink(sink)

		var resp *account.FinalizePasswordResetResponse
		err := handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:      raw,
			Password:   "new_password_22",
			OnResponse: func(r *account.FinalizePasswordResetResponse) { resp = r },
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.NotNil(t, resp.User.PasswordChangedAt)
		assert.Contains(t, sink.Types(), account.ActivityEventPasswordResetSuccess)

		// old credential dead, new one live
		authenticator := account.NewAuthenticator(repo, newTestConfig())
		_, err = authenticator.Login(ctx, "holder@example.com", "old_password_1")
		assert.ErrorIs(t, err, account.ErrAuthenticationFailed)

		token, err := authenticator.Login(ctx, "holder@example.com", "new_password_22")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Token is single use", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		createTestUser(t, repo, "holder@example.com", "old_password_1", true)

		raw := requestReset(t, repo, store, "holder@example.com")
		handler := account.NewFinalizePasswordResetHandler(repo, store, newTestConfig())

		require.NoError(t, handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "new_password_22",
		}))

		err := handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "another_password_3",
		})
		assert.ErrorIs(t, err, account.ErrTokenInvalid)
	})

	t.Run("Activation token cannot reset a password", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		user := createTestUser(t, repo, "holder@example.com", "old_password_1", true)

		raw, _, err := store.Issue(ctx, user.ID, account.TokenKindActivation, 24*time.Hour)
		require.NoError(t, err)

		handler := account.NewFinalizePasswordResetHandler(repo, store, newTestConfig())

		err = handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "new_password_22",
		})
		assert.ErrorIs(t, err, account.ErrTokenInvalid)
	})

	t.Run("Expired token is rejected", func(t *testing.T) {
		repo := setupRepos(t)
		clock := &fixedClock{now: time.Now()}
		store := account.NewTokenStore(repo, account.WithTokenStoreClock(clock.Now))
		createTestUser(t, repo, "holder@example.com", "old_password_1", true)

		raw := requestReset(t, repo, store, "holder@example.com")

		clock.Advance(2 * time.Hour) // reset TTL is one hour

		handler := account.NewFinalizePasswordResetHandler(repo, store, newTestConfig())
		err := handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "new_password_22",
		})
		assert.ErrorIs(t, err, account.ErrTokenInvalid)
	})

	t.Run("Weak replacement password is rejected before any lookup", func(t *testing.T) {
		repo := setupRepos(t)
		store := account.NewTokenStore(repo)
		handler := account.NewFinalizePasswordResetHandler(repo, store, newTestConfig())

		err := handler.Execute(ctx, account.FinalizePasswordResetMessage{
			Token:    "0123456789abcdef0123456789abcdef",
			Password: "short",
		})
		assert.Error(t, err)
		assert.False(t, account.IsTokenInvalid(err))
	})
}
