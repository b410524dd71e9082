package oauth

import (
	"context"
	"time"
)

// SessionTTL bounds the lifetime of an in-flight login attempt. It
// matches the max-age of the state cookie.
const SessionTTL = 600 * time.Second

// Session links an in-flight OAuth attempt's state token to its PKCE
// verifier and redirect URI.
type Session struct {
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// SessionStore holds in-flight OAuth sessions keyed by state. Entries
// are single-use: Take consumes and deletes atomically, so a replayed
// callback with the same state always fails after first use. An
// expired entry is indistinguishable from one that never existed.
//
// Implementations must be safe for concurrent use across distinct
// state keys.
type SessionStore interface {
	// Put stores a session under state with SessionTTL expiry.
	Put(ctx context.Context, state string, sess Session) error

	// Take returns the session for state and deletes it, or
	// ErrSessionInvalid if absent or expired.
	Take(ctx context.Context, state string) (Session, error)

	// Delete removes a session. Deleting an absent state is a no-op.
	Delete(ctx context.Context, state string) error
}
