package account_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	account "github.com/sho327/go-account"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    password_hash TEXT,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    loggedin_at TIMESTAMP NULL,
    password_changed_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateUsersEmailIndex = `CREATE UNIQUE INDEX ux_users_email_alive
    ON users (email) WHERE deleted_at IS NULL;`

	sqliteCreateUserProfiles = `CREATE TABLE user_profiles (
    user_id TEXT NOT NULL PRIMARY KEY,
    display_name TEXT,
    is_public BOOLEAN NOT NULL DEFAULT FALSE,
    location TEXT,
    skill_tags TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`

	sqliteCreateCredentialTokens = `CREATE TABLE credential_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    token_hash TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`

	sqliteCreateLoginLockouts = `CREATE TABLE login_lockouts (
    user_id TEXT NOT NULL PRIMARY KEY,
    attempts INTEGER NOT NULL DEFAULT 0,
    locked BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`
)

func setupRepos(t *testing.T) account.RepositoryManager {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateUsers,
		sqliteCreateUsersEmailIndex,
		sqliteCreateUserProfiles,
		sqliteCreateCredentialTokens,
		sqliteCreateLoginLockouts,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	repo := account.NewRepositoryManager(bunDB)
	require.NoError(t, repo.Validate())

	return repo
}

// newTestConfig uses the minimum bcrypt cost so tests stay fast.
func newTestConfig() *account.SimpleConfig {
	return &account.SimpleConfig{
		SigningKey:            "test-signing-key",
		Issuer:                "test-issuer",
		Audience:              []string{"test:audience"},
		TokenExpiration:       24,
		ActivationTokenTTL:    24,
		PasswordResetTokenTTL: 1,
		MaxLoginAttempts:      3,
		PasswordHashCost:      bcrypt.MinCost,
	}
}

func createTestUser(t *testing.T, repo account.RepositoryManager, email, password string, active bool) *account.User {
	t.Helper()

	hash, err := account.NewHasher(bcrypt.MinCost).HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &account.User{
		Email:        email,
		PasswordHash: hash,
		Active:       active,
	})
	require.NoError(t, err)

	profile, err := repo.Profiles().Create(context.Background(), &account.UserProfile{
		UserID:      user.ID,
		DisplayName: "Test User",
		Public:      true,
	})
	require.NoError(t, err)
	user.Profile = profile

	return user
}

// fixedClock returns a clock pinned at base that can be advanced by tests.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
