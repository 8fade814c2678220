package meroshare

import (
	"errors"
	"fmt"
)

// AuthFailureReason is a closed set of login outcomes. Callers branch on
// the reason to decide between retrying and telling the user to fix
// their account.
type AuthFailureReason string

const (
	ReasonInvalidCredentials AuthFailureReason = "invalid_credentials"
	ReasonPasswordExpired    AuthFailureReason = "password_expired"
	ReasonAccountExpired     AuthFailureReason = "account_expired"
	ReasonDematExpired       AuthFailureReason = "demat_expired"
	ReasonNetwork            AuthFailureReason = "network"
)

// AuthError reports a failed login along with why it failed.
type AuthError struct {
	Reason  AuthFailureReason
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("meroshare login failed (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("meroshare login failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the login can be retried without operator
// intervention. Only network failures qualify; the expired and invalid
// reasons require the account holder to act.
func (e *AuthError) Retryable() bool {
	return e.Reason == ReasonNetwork
}

// AsAuthError extracts an AuthError from an error chain.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// ErrIssuesUnavailable marks that the applicable issue list could not be
// fetched at all. It is distinct from an empty list, which means the
// broker answered and there is simply nothing open.
var ErrIssuesUnavailable = errors.New("applicable issues unavailable")

// ErrNoBanks is returned when the account has no linked bank accounts,
// making submission impossible.
var ErrNoBanks = errors.New("no bank accounts linked to this account")
