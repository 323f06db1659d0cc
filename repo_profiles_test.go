package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	account "github.com/sho327/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProfile(t *testing.T, repo account.RepositoryManager, email, displayName, location, skillTags string, public bool, createdAt time.Time) *account.User {
	t.Helper()

	user, err := repo.Users().Create(context.Background(), &account.User{
		Email:        email,
		PasswordHash: "irrelevant",
		Active:       true,
	})
	require.NoError(t, err)

	_, err = repo.Profiles().Create(context.Background(), &account.UserProfile{
		UserID:      user.ID,
		DisplayName: displayName,
		Public:      public,
		Location:    location,
		SkillTags:   skillTags,
		CreatedAt:   &createdAt,
	})
	require.NoError(t, err)

	return user
}

func TestProfileSearch(t *testing.T) {
	ctx := context.Background()
	repo := setupRepos(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedProfile(t, repo, "ann@example.com", "Ann Architect", "Tokyo", "go,terraform", true, base)
	seedProfile(t, repo, "bob@example.com", "Bob Builder", "Osaka", "go,sql", true, base.Add(time.Hour))
	seedProfile(t, repo, "cara@example.com", "Cara Coder", "Tokyo", "rust", true, base.Add(2*time.Hour))
	seedProfile(t, repo, "dave@example.com", "Dave Hidden", "Tokyo", "go", false, base.Add(3*time.Hour))

	t.Run("Word matches display name or skill tags", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{SearchWord: "go"})
		require.NoError(t, err)
		require.Len(t, results, 2)

		// newest first
		assert.Equal(t, "Bob Builder", results[0].DisplayName)
		assert.Equal(t, "Ann Architect", results[1].DisplayName)
	})

	t.Run("Search is case-insensitive", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{SearchWord: "CODER"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Cara Coder", results[0].DisplayName)
	})

	t.Run("Location narrows results", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{
			SearchWord: "go",
			Location:   "tokyo",
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Ann Architect", results[0].DisplayName)
	})

	t.Run("Skill tag filter", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{SkillTag: "sql"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Bob Builder", results[0].DisplayName)
	})

	t.Run("Private profiles never show up", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{SearchWord: "Hidden"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Empty filter lists public profiles newest first", func(t *testing.T) {
		results, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "Cara Coder", results[0].DisplayName)
	})

	t.Run("Paging", func(t *testing.T) {
		page1, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{Page: 1, PerPage: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)

		page2, err := repo.Profiles().Search(ctx, account.ProfileSearchFilter{Page: 2, PerPage: 2})
		require.NoError(t, err)
		require.Len(t, page2, 1)

		assert.NotEqual(t, page1[0].UserID, page2[0].UserID)
	})
}

func TestProfileGetByUserID(t *testing.T) {
	ctx := context.Background()
	repo := setupRepos(t)

	user := seedProfile(t, repo, "ann@example.com", "Ann Architect", "Tokyo", "go", true, time.Now())

	profile, err := repo.Profiles().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Architect", profile.DisplayName)

	_, err = repo.Profiles().GetByUserID(ctx, uuid.New())
	assert.Error(t, err)
}
