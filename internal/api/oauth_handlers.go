package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fuomag9/accounts-kabomba/internal/config"
	"github.com/fuomag9/accounts-kabomba/internal/models"
	"github.com/fuomag9/accounts-kabomba/internal/oauth"
	"github.com/fuomag9/accounts-kabomba/internal/password"
	"github.com/fuomag9/accounts-kabomba/internal/token"
	"github.com/fuomag9/accounts-kabomba/internal/users"
)

const stateCookieName = "oauth_state"

// ProviderResolver resolves a provider identifier to its configuration.
// The production resolver is oauth.ResolveProvider; tests substitute
// configs pointing at stub servers.
type ProviderResolver func(id string) (*oauth.Provider, error)

// HandleOAuthLogin starts the OAuth flow: it creates a state token and
// PKCE pair, stores the session, sets the state cookie and redirects
// the browser to the provider's consent screen.
func HandleOAuthLogin(cfg *config.Config, client *oauth.Client, sessions oauth.SessionStore, resolve ProviderResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "provider")
		provider, err := resolve(providerID)
		if err != nil {
			respondProviderError(w, providerID, err)
			return
		}

		redirectURI := fmt.Sprintf("%s/api/auth/%s/callback", cfg.BaseURL, providerID)
		authURL, state, verifier, err := client.AuthorizationURL(provider, redirectURI, "")
		if err != nil {
			log.Println("OAuth: Failed to build authorization URL:", err)
			writeError(w, http.StatusInternalServerError, "Failed to initiate OAuth")
			return
		}

		sess := oauth.Session{CodeVerifier: verifier, RedirectURI: redirectURI}
		if err := sessions.Put(r.Context(), state, sess); err != nil {
			log.Println("OAuth: Failed to store session:", err)
			writeError(w, http.StatusInternalServerError, "Failed to initiate OAuth")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			MaxAge:   int(oauth.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// HandleOAuthCallback finishes the OAuth flow: CSRF check against the
// state cookie, single-use session consumption, code exchange,
// identity extraction, user resolution and local token issuance,
// ending in a redirect to the frontend.
func HandleOAuthCallback(cfg *config.Config, client *oauth.Client, sessions oauth.SessionStore, store users.Store, issuer *token.Issuer, resolve ProviderResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "provider")
		provider, err := resolve(providerID)
		if err != nil {
			respondProviderError(w, providerID, err)
			return
		}

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "Missing code or state parameter")
			return
		}

		// CSRF binding comes first: the cookie must equal the state the
		// provider echoed back. No session lookup happens before this,
		// so a forged state cannot probe which sessions exist.
		cookie, err := r.Cookie(stateCookieName)
		if err != nil || cookie.Value == "" || cookie.Value != state {
			log.Printf("OAuth: CSRF validation failed for provider %s", providerID)
			writeError(w, http.StatusBadRequest, oauth.ErrCSRFMismatch.Error())
			return
		}

		ctx := r.Context()
		sess, err := sessions.Take(ctx, state)
		if err != nil {
			log.Println("OAuth: Session lookup failed:", err)
			writeError(w, http.StatusBadRequest, oauth.ErrSessionInvalid.Error())
			return
		}

		// The session is consumed; the cookie is useless from here on
		// regardless of how the rest of the flow ends.
		clearStateCookie(w, cfg)

		tokenResp, err := client.ExchangeCode(ctx, provider, code, sess.RedirectURI, sess.CodeVerifier)
		if err != nil {
			respondFlowError(w, err)
			return
		}
		if tokenResp.Error != "" {
			detail := tokenResp.ErrorDescription
			if detail == "" {
				detail = "OAuth error"
			}
			log.Printf("OAuth: Provider %s reported error: %s", providerID, tokenResp.Error)
			writeError(w, http.StatusBadRequest, detail)
			return
		}
		if tokenResp.AccessToken == "" {
			writeError(w, http.StatusBadRequest, oauth.ErrNoAccessToken.Error())
			return
		}

		info, err := client.FetchUserInfo(ctx, provider, tokenResp.AccessToken)
		if err != nil {
			respondFlowError(w, err)
			return
		}

		identity, err := client.ExtractIdentity(ctx, provider, info, tokenResp.AccessToken)
		if err != nil {
			respondFlowError(w, err)
			return
		}

		username, err := resolveOAuthUser(ctx, store, identity)
		if err != nil {
			respondFlowError(w, err)
			return
		}

		jwtToken, err := issuer.Issue(username)
		if err != nil {
			log.Println("OAuth: Failed to generate token:", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		redirectURL := fmt.Sprintf("%s/oauth/callback?token=%s&username=%s",
			cfg.FrontendURL, url.QueryEscape(jwtToken), url.QueryEscape(username))
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// resolveOAuthUser maps an extracted identity to a local username. An
// existing user matching by username or email keeps its stored
// username; profile fields are never synced on repeat login. A new
// identity gets a fresh account with an unusable random password.
func resolveOAuthUser(ctx context.Context, store users.Store, identity oauth.Identity) (string, error) {
	user, err := store.FindByUsernameOrEmail(ctx, identity.Username, identity.Email)
	if err == nil {
		return user.Username, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return "", err
	}

	digest, err := password.RandomDigest()
	if err != nil {
		return "", err
	}

	newUser := models.User{
		Username:  identity.Username,
		Email:     identity.Email,
		Password:  digest,
		CreatedAt: time.Now(),
	}
	if identity.Fullname != "" {
		newUser.Fullname = &identity.Fullname
	}

	if err := store.Create(ctx, &newUser); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			// A concurrent callback for the same identity won the
			// insert; use the row it created.
			existing, findErr := store.FindByUsernameOrEmail(ctx, identity.Username, identity.Email)
			if findErr != nil {
				return "", findErr
			}
			return existing.Username, nil
		}
		return "", err
	}

	log.Printf("OAuth: Created user %s", newUser.Username)
	return newUser.Username, nil
}

func clearStateCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func respondProviderError(w http.ResponseWriter, providerID string, err error) {
	switch {
	case errors.Is(err, oauth.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported provider: %s", providerID))
	case errors.Is(err, oauth.ErrMissingCredentials):
		log.Printf("OAuth: Provider %s requested but not enabled", providerID)
		writeError(w, http.StatusNotFound, fmt.Sprintf("OAuth provider %s is not enabled", providerID))
	default:
		log.Println("OAuth: Provider resolution failed:", err)
		writeError(w, http.StatusInternalServerError, "Failed to initiate OAuth")
	}
}

// respondFlowError maps flow failures to 400 responses. Every named
// failure keeps its own message; anything unexpected is wrapped so the
// client still sees what went wrong.
func respondFlowError(w http.ResponseWriter, err error) {
	log.Println("OAuth: Flow failed:", err)

	var provErr *oauth.ProviderError
	var unreachable *oauth.UnreachableError
	switch {
	case errors.As(err, &unreachable):
		writeError(w, http.StatusBadRequest, "OAuth provider unreachable")
	case errors.As(err, &provErr):
		writeError(w, http.StatusBadRequest, provErr.Error())
	case errors.Is(err, oauth.ErrNoUserData):
		writeError(w, http.StatusBadRequest, oauth.ErrNoUserData.Error())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("OAuth login failed: %v", err))
	}
}
