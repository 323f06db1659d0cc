package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenKind is the credential token type
type TokenKind = string

const (
	// TokenKindActivation proves receipt of the registration email
	TokenKindActivation TokenKind = "activation"
	// TokenKindPasswordReset proves receipt of the reset email
	TokenKindPasswordReset TokenKind = "password_reset"
)

// User is the account model. Accounts are created inactive and flipped
// active by token-based activation; soft delete marks account closure.
// Email is unique among alive accounts only; closed accounts keep their row,
// so enforcement is a partial index plus the repository check.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email             string       `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash      string       `bun:"password_hash" json:"-"`
	Active            bool         `bun:"is_active" json:"is_active"`
	LoggedInAt        *time.Time   `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	PasswordChangedAt *time.Time   `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	Profile           *UserProfile `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	CreatedAt         *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsAlive reports whether the account has not been soft deleted
func (u *User) IsAlive() bool {
	return u != nil && u.DeletedAt == nil
}

// UserProfile is the 1-1 profile record created alongside every account.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:prf"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	Public        bool       `bun:"is_public" json:"is_public"`
	Location      string     `bun:"location" json:"location,omitempty"`
	SkillTags     string     `bun:"skill_tags" json:"skill_tags,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// CredentialToken is a single-use, typed, expiring secret. Only the SHA-256
// digest of the raw secret is ever stored; the raw value travels out-of-band
// (email) exactly once at issuance. DeletedAt doubles as the consumed/
// superseded marker, so rows stay behind for audit.
type CredentialToken struct {
	bun.BaseModel `bun:"table:credential_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Usable reports whether the token is unconsumed and unexpired at now
func (t *CredentialToken) Usable(now time.Time) bool {
	return t != nil && t.DeletedAt == nil && now.Before(t.ExpiresAt)
}

// LoginLockout tallies consecutive failed authentication attempts for one
// account. Rows are created lazily by the first failure. Locked never flips
// back on a successful password match; unlocking is administrative.
type LoginLockout struct {
	bun.BaseModel `bun:"table:login_lockouts,alias:lck"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	Attempts      int        `bun:"attempts,notnull" json:"attempts"`
	Locked        bool       `bun:"locked,notnull" json:"locked"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
