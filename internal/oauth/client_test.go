package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubTestProvider() *Provider {
	return &Provider{
		ID:              ProviderGitHub,
		AuthorizeURL:    "https://github.example/authorize",
		TokenURL:        "https://github.example/token",
		UserInfoURL:     "https://github.example/user",
		EmailsURL:       "https://github.example/emails",
		DefaultScope:    "user:email",
		ExtraAuthParams: map[string]string{"allow_signup": "true"},
		TokenHeaders:    map[string]string{"Accept": "application/json"},
		ClientID:        "test-client",
		ClientSecret:    "test-secret",
	}
}

func TestAuthorizationURL(t *testing.T) {
	client := NewClient()
	provider := githubTestProvider()

	authURL, state, verifier, err := client.AuthorizationURL(provider, "http://localhost:8080/api/auth/github/callback", "")
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NotEmpty(t, verifier)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()

	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/auth/github/callback", q.Get("redirect_uri"))
	assert.Equal(t, "user:email", q.Get("scope"), "empty scope falls back to provider default")
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "true", q.Get("allow_signup"))
}

func TestAuthorizationURLExplicitScope(t *testing.T) {
	client := NewClient()

	authURL, _, _, err := client.AuthorizationURL(githubTestProvider(), "http://localhost/cb", "read:user")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "read:user", parsed.Query().Get("scope"))
}

func TestAuthorizationURLFreshStatePerAttempt(t *testing.T) {
	client := NewClient()
	provider := githubTestProvider()

	_, state1, verifier1, err := client.AuthorizationURL(provider, "http://localhost/cb", "")
	require.NoError(t, err)
	_, state2, verifier2, err := client.AuthorizationURL(provider, "http://localhost/cb", "")
	require.NoError(t, err)

	assert.NotEqual(t, state1, state2)
	assert.NotEqual(t, verifier1, verifier2)
}

func TestExchangeCodeGitHub(t *testing.T) {
	var gotForm url.Values
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_token", "token_type": "bearer"})
	}))
	defer srv.Close()

	provider := githubTestProvider()
	provider.TokenURL = srv.URL

	client := NewClient()
	resp, err := client.ExchangeCode(context.Background(), provider, "the-code", "http://localhost/cb", "the-verifier")
	require.NoError(t, err)

	assert.Equal(t, "gho_token", resp.AccessToken)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "test-client", gotForm.Get("client_id"))
	assert.Equal(t, "test-secret", gotForm.Get("client_secret"))
	assert.Equal(t, "the-code", gotForm.Get("code"))
	assert.Equal(t, "http://localhost/cb", gotForm.Get("redirect_uri"))
	assert.Equal(t, "the-verifier", gotForm.Get("code_verifier"))
	assert.Empty(t, gotForm.Get("grant_type"), "github token request carries no grant_type")
}

func TestExchangeCodeGoogleGrantType(t *testing.T) {
	var gotForm url.Values
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "ya29.token"})
	}))
	defer srv.Close()

	provider := &Provider{
		ID:             ProviderGoogle,
		TokenURL:       srv.URL,
		TokenHeaders:   map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		TokenBodyExtra: map[string]string{"grant_type": "authorization_code"},
		ClientID:       "goog-client",
		ClientSecret:   "goog-secret",
	}

	client := NewClient()
	resp, err := client.ExchangeCode(context.Background(), provider, "code", "http://localhost/cb", "ver")
	require.NoError(t, err)

	assert.Equal(t, "ya29.token", resp.AccessToken)
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestExchangeCodeProviderErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
	}))
	defer srv.Close()

	provider := githubTestProvider()
	provider.TokenURL = srv.URL

	resp, err := NewClient().ExchangeCode(context.Background(), provider, "stale", "http://localhost/cb", "v")
	require.NoError(t, err, "provider-reported errors come back in the payload, not as a transport error")
	assert.Equal(t, "bad_verification_code", resp.Error)
	assert.Equal(t, "The code passed is incorrect or expired.", resp.ErrorDescription)
	assert.Empty(t, resp.AccessToken)
}

func TestExchangeCodeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := githubTestProvider()
	provider.TokenURL = srv.URL

	_, err := NewClient().ExchangeCode(context.Background(), provider, "c", "http://localhost/cb", "v")
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusInternalServerError, provErr.Status)
}

func TestExchangeCodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	provider := githubTestProvider()
	provider.TokenURL = srv.URL

	_, err := NewClient().ExchangeCode(context.Background(), provider, "c", "http://localhost/cb", "v")
	var unreachable *UnreachableError
	assert.ErrorAs(t, err, &unreachable)
}

func TestFetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"login": "octo", "name": "Octo Cat", "email": "octo@example.com"})
	}))
	defer srv.Close()

	provider := githubTestProvider()
	provider.UserInfoURL = srv.URL

	info, err := NewClient().FetchUserInfo(context.Background(), provider, "tok")
	require.NoError(t, err)
	assert.Equal(t, "octo", info.Login)
	assert.Equal(t, "Octo Cat", info.Name)
	assert.Equal(t, "octo@example.com", info.Email)
}

func TestFetchUserEmailsNoEndpoint(t *testing.T) {
	provider := &Provider{ID: ProviderGoogle} // no EmailsURL

	emails, err := NewClient().FetchUserEmails(context.Background(), provider, "tok")
	require.NoError(t, err, "providers without an emails endpoint return an empty list, never an error")
	assert.Empty(t, emails)
}

func TestFetchUserEmails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"email": "a@x.com", "primary": false, "verified": true},
			{"email": "b@x.com", "primary": true, "verified": true},
		})
	}))
	defer srv.Close()

	provider := githubTestProvider()
	provider.EmailsURL = srv.URL

	emails, err := NewClient().FetchUserEmails(context.Background(), provider, "tok")
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "a@x.com", emails[0].Email)
	assert.True(t, emails[1].Primary)
}
