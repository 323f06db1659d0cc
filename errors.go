package account

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeAuthenticationFailed covers unknown identifier and wrong
	// password alike; the two cases are never distinguished for callers.
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	// TextCodeAccountLocked is the gate failure after proven credentials.
	TextCodeAccountLocked  = "ACCOUNT_LOCKED"
	TextCodeDuplicateEmail = "DUPLICATE_EMAIL"
	// TextCodeTokenInvalid covers not-found, wrong kind, expired, and
	// already-used credential tokens, intentionally unified.
	TextCodeTokenInvalid  = "TOKEN_INVALID"
	TextCodeAlreadyActive = "ALREADY_ACTIVE"
	// TextCodeIdentityAnomaly marks a data-integrity violation (multiple
	// alive accounts matched one identifier). Logged internally, surfaced to
	// callers as AUTHENTICATION_FAILED.
	TextCodeIdentityAnomaly = "IDENTITY_ANOMALY"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
)

// ErrAuthenticationFailed is the unified bad-identifier-or-password error
var ErrAuthenticationFailed = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned when an account is inactive or locked out
var ErrAccountLocked = goerrors.New("account is locked or not activated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is the registration conflict error
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrTokenInvalid is the unified credential token failure
var ErrTokenInvalid = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrAlreadyActive is returned when activating an already active account
var ErrAlreadyActive = goerrors.New("account is already activated", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyActive).
	WithCode(goerrors.CodeConflict)

// ErrIdentityAnomaly is raised internally when an identifier resolves to
// more than one alive account
var ErrIdentityAnomaly = goerrors.New("identifier matched multiple accounts", goerrors.CategoryInternal).
	WithTextCode(TextCodeIdentityAnomaly)

// ErrNoEmptyString guards against hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch signal
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed)

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsAuthenticationFailed checks for the unified credential failure
func IsAuthenticationFailed(err error) bool {
	return hasTextCode(err, TextCodeAuthenticationFailed)
}

// IsAccountLocked checks for the post-credential gate failure
func IsAccountLocked(err error) bool {
	return hasTextCode(err, TextCodeAccountLocked)
}

// IsTokenInvalid checks for the unified token failure
func IsTokenInvalid(err error) bool {
	return hasTextCode(err, TextCodeTokenInvalid)
}

// IsAlreadyActive checks for the double-activation conflict
func IsAlreadyActive(err error) bool {
	return hasTextCode(err, TextCodeAlreadyActive)
}

// IsDuplicateEmail checks for the registration conflict
func IsDuplicateEmail(err error) bool {
	return hasTextCode(err, TextCodeDuplicateEmail)
}

// IsIdentityAnomaly checks for the multiple-match integrity violation
func IsIdentityAnomaly(err error) bool {
	return hasTextCode(err, TextCodeIdentityAnomaly)
}
