package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

type UserService struct {
	Store store.Store
	Audit *Recorder
}

// Register creates a new account. Emails are stored lowercase so lookups and
// the unique constraint are case-insensitive.
func (s *UserService) Register(ctx context.Context, email, password, fullName string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         domain.RoleGuest,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique email constraint is the arbiter under concurrent
	// registration; no lookup-then-insert race.
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	s.Audit.Record(ctx, user.ID, "register", "user", user.ID, nil)

	return user, nil
}

// Get returns the user by id.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}
