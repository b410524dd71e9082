package oauth

import (
	"fmt"
	"os"
)

// ProviderID identifies a supported OAuth provider. The set is closed:
// adding a provider means adding a registry entry, not configuration.
type ProviderID string

const (
	ProviderGitHub ProviderID = "github"
	ProviderGoogle ProviderID = "google"
)

// Provider holds the static configuration for one OAuth provider plus
// the credentials resolved from the environment.
type Provider struct {
	ID              ProviderID
	ClientIDEnv     string
	ClientSecretEnv string
	AuthorizeURL    string
	TokenURL        string
	UserInfoURL     string
	EmailsURL       string // empty for providers without a dedicated emails endpoint
	DefaultScope    string
	ExtraAuthParams map[string]string
	TokenBodyExtra  map[string]string
	TokenHeaders    map[string]string

	ClientID     string
	ClientSecret string
}

var registry = map[ProviderID]Provider{
	ProviderGitHub: {
		ID:              ProviderGitHub,
		ClientIDEnv:     "GITHUB_CLIENT_ID",
		ClientSecretEnv: "GITHUB_CLIENT_SECRET",
		AuthorizeURL:    "https://github.com/login/oauth/authorize",
		TokenURL:        "https://github.com/login/oauth/access_token",
		UserInfoURL:     "https://api.github.com/user",
		EmailsURL:       "https://api.github.com/user/emails",
		DefaultScope:    "user:email",
		ExtraAuthParams: map[string]string{"allow_signup": "true"},
		TokenHeaders:    map[string]string{"Accept": "application/json"},
	},
	ProviderGoogle: {
		ID:              ProviderGoogle,
		ClientIDEnv:     "GOOGLE_CLIENT_ID",
		ClientSecretEnv: "GOOGLE_CLIENT_SECRET",
		AuthorizeURL:    "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:        "https://oauth2.googleapis.com/token",
		UserInfoURL:     "https://www.googleapis.com/oauth2/v2/userinfo",
		DefaultScope:    "openid email profile",
		ExtraAuthParams: map[string]string{
			"access_type":   "offline",
			"prompt":        "consent",
			"response_type": "code",
		},
		TokenHeaders:   map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		TokenBodyExtra: map[string]string{"grant_type": "authorization_code"},
	},
}

// ProviderIDs returns the identifiers of all registered providers.
func ProviderIDs() []ProviderID {
	return []ProviderID{ProviderGitHub, ProviderGoogle}
}

// ResolveProvider looks up a provider by identifier and fills in its
// client credentials from the environment. It returns
// ErrUnsupportedProvider for unknown identifiers and
// ErrMissingCredentials when either credential variable is unset.
func ResolveProvider(id string) (*Provider, error) {
	cfg, ok := registry[ProviderID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, id)
	}

	cfg.ClientID = os.Getenv(cfg.ClientIDEnv)
	cfg.ClientSecret = os.Getenv(cfg.ClientSecretEnv)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: set %s and %s for provider %s",
			ErrMissingCredentials, cfg.ClientIDEnv, cfg.ClientSecretEnv, id)
	}

	return &cfg, nil
}
