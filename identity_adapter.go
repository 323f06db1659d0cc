package account

// UserIdentity adapts a User into the Identity interface for grant issuance.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// DisplayName returns the profile display name when loaded.
func (u UserIdentity) DisplayName() string {
	if u.user == nil || u.user.Profile == nil {
		return ""
	}
	return u.user.Profile.DisplayName
}
