// Package users provides user storage behind a small store interface
// so handlers can be tested without a database.
package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fuomag9/accounts-kabomba/internal/models"
)

var (
	// ErrNotFound means no user matched the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate means a unique constraint on username or email was
	// violated. During concurrent OAuth callbacks it signals that
	// another request just created the same user.
	ErrDuplicate = errors.New("username or email already exists")
)

// Store is the user persistence contract.
type Store interface {
	// FindByUsernameOrEmail returns the user whose username or email
	// matches either argument, or ErrNotFound.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	// FindByUsername returns the user with the given username, or
	// ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// Create inserts a new user. ErrDuplicate when username or email
	// is already taken.
	Create(ctx context.Context, user *models.User) error

	// Delete removes a user by id.
	Delete(ctx context.Context, id int) error
}

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by the given GORM connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Create(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	} else if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id int) error {
	if err := s.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
