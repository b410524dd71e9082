package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client drives the authorization-code-with-PKCE flow against any
// registered provider. Per-provider differences (endpoints, scopes,
// token-request headers and body fields) come from the Provider
// config, so one client serves both GitHub and Google.
type Client struct {
	httpClient *http.Client
}

// TokenResponse is the decoded body of a token-endpoint response. The
// client returns it raw; validation of the error and access_token
// fields is the caller's job.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// UserInfo is a provider profile payload. Providers populate different
// subsets: GitHub uses login/name/email, Google uses email/name.
type UserInfo struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EmailRecord is one entry from a provider's emails endpoint.
type EmailRecord struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewClient creates an OAuth client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AuthorizationURL composes the provider's authorize URL and generates
// the state token and PKCE pair for a new login attempt. An empty
// scope falls back to the provider's default.
func (c *Client) AuthorizationURL(provider *Provider, redirectURI, scope string) (authURL, state, verifier string, err error) {
	state, err = GenerateState()
	if err != nil {
		return "", "", "", err
	}
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", "", "", err
	}

	if scope == "" {
		scope = provider.DefaultScope
	}

	params := url.Values{}
	params.Set("client_id", provider.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", scope)
	params.Set("state", state)
	params.Set("code_challenge", pkce.Challenge)
	params.Set("code_challenge_method", "S256")
	for k, v := range provider.ExtraAuthParams {
		params.Set(k, v)
	}

	return provider.AuthorizeURL + "?" + params.Encode(), state, pkce.Verifier, nil
}

// ExchangeCode exchanges an authorization code for a token at the
// provider's token endpoint. The code is single-use, so the exchange
// is never retried; transport failures surface as UnreachableError.
func (c *Client) ExchangeCode(ctx context.Context, provider *Provider, code, redirectURI, verifier string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", provider.ClientID)
	data.Set("client_secret", provider.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("code_verifier", verifier)
	for k, v := range provider.TokenBodyExtra {
		data.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range provider.TokenHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Provider: provider.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: provider.ID, Status: resp.StatusCode, Detail: string(body)}
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, &ProviderError{Provider: provider.ID, Detail: fmt.Sprintf("failed to decode token response: %v", err)}
	}
	return &token, nil
}

// FetchUserInfo fetches the user profile from the provider.
func (c *Client) FetchUserInfo(ctx context.Context, provider *Provider, accessToken string) (*UserInfo, error) {
	var info UserInfo
	if err := c.getJSON(ctx, provider, provider.UserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchUserEmails fetches the user's email addresses for providers
// that expose a dedicated emails endpoint (GitHub). Providers without
// one (Google) get an empty list, not an error.
func (c *Client) FetchUserEmails(ctx context.Context, provider *Provider, accessToken string) ([]EmailRecord, error) {
	if provider.EmailsURL == "" {
		return nil, nil
	}
	var emails []EmailRecord
	if err := c.getJSON(ctx, provider, provider.EmailsURL, accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (c *Client) getJSON(ctx context.Context, provider *Provider, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Provider: provider.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &ProviderError{Provider: provider.ID, Status: resp.StatusCode, Detail: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: provider.ID, Detail: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}
