package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fuomag9/accounts-kabomba/internal/models"
	"github.com/fuomag9/accounts-kabomba/internal/password"
	"github.com/fuomag9/accounts-kabomba/internal/token"
	"github.com/fuomag9/accounts-kabomba/internal/users"
)

type contextKey string

const userContextKey contextKey = "user"

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user returned by registration
type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest represents login credentials; Username also accepts an
// email address
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleRegister handles user registration
func HandleRegister(store users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Username == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username, email and password are required")
			return
		}

		if _, err := store.FindByUsername(r.Context(), req.Username); err == nil {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		} else if !errors.Is(err, users.ErrNotFound) {
			log.Println("Register: Failed to check username:", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		digest, err := password.Hash(req.Password)
		if err != nil {
			log.Println("Register: Failed to hash password:", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		newUser := models.User{
			Username:  req.Username,
			Email:     req.Email,
			Password:  digest,
			CreatedAt: time.Now(),
		}
		if req.Fullname != "" {
			newUser.Fullname = &req.Fullname
		}

		if err := store.Create(r.Context(), &newUser); err != nil {
			if errors.Is(err, users.ErrDuplicate) {
				writeError(w, http.StatusBadRequest, "Username or email already exists")
				return
			}
			log.Println("Register: Failed to create user:", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Printf("Register: Created user %s", newUser.Username)
		writeJSON(w, http.StatusOK, UserResponse{Username: newUser.Username, Email: newUser.Email})
	}
}

// HandleLogin handles password login by username or email
func HandleLogin(store users.Store, issuer *token.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := store.FindByUsernameOrEmail(r.Context(), req.Username, req.Username)
		if err != nil {
			log.Println("Login: Authentication failed - user not found")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if !password.Verify(req.Password, user.Password) {
			log.Println("Login: Authentication failed - invalid password")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		tokenString, err := issuer.Issue(user.Username)
		if err != nil {
			log.Println("Login: Failed to generate token:", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: tokenString, User: user})
	}
}

// HandleLogout handles user logout
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Stateless tokens: logout is handled client-side
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}

// HandleGetCurrentUser returns the current authenticated user
func HandleGetCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(userContextKey).(*models.User)
		writeJSON(w, http.StatusOK, user)
	}
}

// HandleDeleteCurrentUser deletes the authenticated account
func HandleDeleteCurrentUser(store users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(userContextKey).(*models.User)
		if err := store.Delete(r.Context(), user.ID); err != nil {
			log.Println("Delete: Failed to delete user:", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete user")
			return
		}
		log.Printf("Delete: Removed user %s", user.Username)
		writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
	}
}

// AuthMiddleware validates bearer tokens and loads the user
func AuthMiddleware(issuer *token.Issuer, store users.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			username, err := issuer.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			user, err := store.FindByUsername(r.Context(), username)
			if err != nil {
				log.Println("AuthMiddleware: Failed to load user:", err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
