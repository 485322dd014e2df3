// Package users provides database operations for user management.
//
// Usernames are unique case-insensitively: the document id is the normalized
// username and accounts are created with a create-if-absent write.
//
// # Usage
//
//	repo := users.NewRepository(store, auth.NewHasher(12))
//	user, err := repo.Authenticate(ctx, "alice", password)
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

const Collection = "users"

var (
	ErrEmptyUsername = errors.New("username is empty")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrInvalidLogin  = errors.New("invalid username or password")
)

// NormalizeUsername returns the canonical form of a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Repository handles all user database operations.
type Repository struct {
	store  docstore.Store
	hasher auth.Hasher
}

// NewRepository creates a new users repository.
func NewRepository(store docstore.Store, hasher auth.Hasher) *Repository {
	return &Repository{store: store, hasher: hasher}
}

// CreateUser creates an account. A racing duplicate fails with ErrUsernameTaken.
func (r *Repository) CreateUser(ctx context.Context, username, email, password string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	id := NormalizeUsername(username)
	if id == "" {
		return nil, ErrEmptyUsername
	}
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := entities.Now()
	user := &entities.User{
		ID:           id,
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = r.store.Create(ctx, Collection, id, user)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username, case-insensitively. It returns nil when absent.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	id := NormalizeUsername(username)
	if id == "" {
		return nil, nil
	}
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", id, err)
	}
	var user entities.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the user when the password matches.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidLogin
	}
	if err := r.hasher.Check(password, user.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user. It reports whether the user existed.
func (r *Repository) DeleteUser(ctx context.Context, username string) (bool, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return false, err
	}
	if err := r.store.Delete(ctx, Collection, user.ID); err != nil {
		return false, fmt.Errorf("delete user %q: %w", user.ID, err)
	}
	return true, nil
}
