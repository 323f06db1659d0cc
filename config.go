package account

// Config holds account engine options. Values are supplied by the embedding
// application at construction time; nothing in this package reads ambient
// process configuration.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenExpiration is the grant (JWT) lifetime in hours.
	GetTokenExpiration() int
	// GetActivationTokenTTL is the activation token lifetime in hours.
	GetActivationTokenTTL() int
	// GetPasswordResetTokenTTL is the reset token lifetime in hours.
	GetPasswordResetTokenTTL() int
	GetMaxLoginAttempts() int
	GetPasswordHashCost() int
	// GetSupersedeOnReissue controls whether issuing a token invalidates
	// prior unconsumed tokens of the same kind for the same account.
	GetSupersedeOnReissue() bool
}

// SimpleConfig is a plain struct implementation of Config.
type SimpleConfig struct {
	SigningKey            string
	Issuer                string
	Audience              []string
	TokenExpiration       int
	ActivationTokenTTL    int
	PasswordResetTokenTTL int
	MaxLoginAttempts      int
	PasswordHashCost      int
	SupersedeOnReissue    bool
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetActivationTokenTTL() int {
	if c.ActivationTokenTTL <= 0 {
		return 24
	}
	return c.ActivationTokenTTL
}

func (c *SimpleConfig) GetPasswordResetTokenTTL() int {
	if c.PasswordResetTokenTTL <= 0 {
		return 1
	}
	return c.PasswordResetTokenTTL
}

func (c *SimpleConfig) GetMaxLoginAttempts() int {
	if c.MaxLoginAttempts <= 0 {
		return 5
	}
	return c.MaxLoginAttempts
}

func (c *SimpleConfig) GetPasswordHashCost() int {
	if c.PasswordHashCost <= 0 {
		return 14
	}
	return c.PasswordHashCost
}

func (c *SimpleConfig) GetSupersedeOnReissue() bool { return c.SupersedeOnReissue }
