package oauth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the OAuth flow. Handlers map these to client
// responses; none of them is retryable because the authorization code
// is single-use.
var (
	ErrUnsupportedProvider = errors.New("unsupported OAuth provider")
	ErrMissingCredentials  = errors.New("missing OAuth client credentials")
	ErrCSRFMismatch        = errors.New("invalid state parameter - possible CSRF attack")
	ErrSessionInvalid      = errors.New("session expired or invalid")
	ErrNoAccessToken       = errors.New("no access token received")
	ErrNoUserData          = errors.New("failed to retrieve user information")
)

// ProviderError is a non-2xx or provider-reported failure from an
// upstream OAuth endpoint.
type ProviderError struct {
	Provider ProviderID
	Status   int
	Detail   string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}

// UnreachableError wraps a transport-level failure (timeout, connection
// refused) talking to a provider.
type UnreachableError struct {
	Provider ProviderID
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Provider, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}
