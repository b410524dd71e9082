package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fuomag9/accounts-kabomba/internal/config"
	"github.com/fuomag9/accounts-kabomba/internal/models"
	"github.com/fuomag9/accounts-kabomba/internal/oauth"
	"github.com/fuomag9/accounts-kabomba/internal/token"
	"github.com/fuomag9/accounts-kabomba/internal/users"
)

// fakeUserStore is an in-memory users.Store with the same uniqueness
// guarantees as the Postgres schema.
type fakeUserStore struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int]*models.User), nextID: 1}
}

func (s *fakeUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return users.ErrDuplicate
		}
	}
	user.ID = s.nextID
	s.nextID++
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:  "development",
		BaseURL:      "http://localhost:8080",
		FrontendURL:  "http://localhost:5173",
		CookieSecure: false,
		JWTSecret:    "test-secret-at-least-16ch",
		TokenTTL:     15 * time.Minute,
	}
}

func testIssuer(cfg *config.Config) *token.Issuer {
	return token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
}

// oauthTestRouter wires the OAuth handlers with a substitute provider
// resolver so flows run against stub provider servers.
func oauthTestRouter(cfg *config.Config, sessions oauth.SessionStore, store users.Store, issuer *token.Issuer, resolve ProviderResolver) http.Handler {
	client := oauth.NewClient()
	r := chi.NewRouter()
	r.Get("/api/auth/{provider}/login", HandleOAuthLogin(cfg, client, sessions, resolve))
	r.Get("/api/auth/{provider}/callback", HandleOAuthCallback(cfg, client, sessions, store, issuer, resolve))
	return r
}
