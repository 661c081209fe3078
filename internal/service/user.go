// Package service holds the business rules of the marketplace.
//
// Handlers parse HTTP into the Input structs declared here; services
// validate them, apply the auth and ownership rules, and drive the
// repository.Store. Every service method reports failures as apperror
// values so the HTTP layer can choose a status code without knowing the
// rules.
//
// The check order is the same everywhere:
//
//  1. validate input              → 400
//  2. require an authenticated user → 401
//  3. load the target row         → 404
//  4. ownership / self / creator  → 403
//  5. mutate
//
// Multi-step mutations run inside Store.WithTx.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/auth"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/ratelimit"
	"github.com/sakif/game-marketplace/internal/repository"
)

type RegisterInput struct {
	Email     string `json:"email"     validate:"required,email,max=256"`
	FirstName string `json:"firstName" validate:"required,min=1,max=64"`
	LastName  string `json:"lastName"  validate:"required,min=1,max=64"`
	Password  string `json:"password"  validate:"required,min=6,max=64"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email,max=256"`
	Password string `json:"password" validate:"required,min=1,max=64"`
}

// UpdateUserInput is a partial update; nil fields are left alone.
type UpdateUserInput struct {
	Email           *string `json:"email"           validate:"omitnil,email,max=256"`
	FirstName       *string `json:"firstName"       validate:"omitnil,min=1,max=64"`
	LastName        *string `json:"lastName"        validate:"omitnil,min=1,max=64"`
	Password        *string `json:"password"        validate:"omitnil,min=6,max=64"`
	CurrentPassword *string `json:"currentPassword" validate:"omitnil,min=1,max=64"`
}

type LoginResult struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}

// UserService handles registration, sessions and profile edits.
type UserService struct {
	store     repository.Store
	passwords *auth.PasswordService
	limiter   ratelimit.Limiter
	logger    *slog.Logger
}

func NewUserService(
	store repository.Store,
	passwords *auth.PasswordService,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:     store,
		passwords: passwords,
		limiter:   limiter,
		logger:    logger,
	}
}

// Register creates an account and returns its id. An email that is
// already registered is a 403.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("service/user: %w", err)
	}

	user := &model.User{
		Email:        strings.TrimSpace(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		inUse, err := tx.Users().EmailInUse(ctx, user.Email, 0)
		if err != nil {
			return err
		}
		if inUse {
			return apperror.Forbidden("Email already in use")
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return 0, fmt.Errorf("service/user: registering: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return user.ID, nil
}

// Login checks the credentials and issues a fresh session token,
// replacing any previous one.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, in.Email)
	if err != nil {
		// Fail open: an unreachable Redis must not lock everyone out.
		s.logger.Warn("login limiter unavailable", slog.String("error", err.Error()))
		allowed = true
	}
	if !allowed {
		return nil, apperror.TooManyRequests("Too many failed login attempts, try again later")
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.recordFailure(ctx, in.Email)
			return nil, apperror.Unauthorized("Incorrect email/password")
		}
		return nil, fmt.Errorf("service/user: login lookup: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.recordFailure(ctx, in.Email)
			return nil, apperror.Unauthorized("Incorrect email/password")
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}

	token := auth.NewToken()
	if err := s.store.Users().SetToken(ctx, user.ID, token); err != nil {
		return nil, fmt.Errorf("service/user: storing token: %w", err)
	}

	if err := s.limiter.Reset(ctx, in.Email); err != nil {
		s.logger.Warn("resetting login limiter", slog.String("error", err.Error()))
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return &LoginResult{UserID: user.ID, Token: token}, nil
}

func (s *UserService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.logger.Warn("recording failed login", slog.String("error", err.Error()))
	}
}

// Logout revokes the caller's token.
func (s *UserService) Logout(ctx context.Context, actor *model.User) error {
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}
	if err := s.store.Users().ClearToken(ctx, actor.ID); err != nil {
		return fmt.Errorf("service/user: logout: %w", err)
	}
	s.logger.Info("user logged out", slog.Int64("userID", actor.ID))
	return nil
}

// View returns the public profile of id. The email is included only when
// the caller is that user.
func (s *UserService) View(ctx context.Context, actor *model.User, id int64) (*model.UserView, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: view: %w", err)
	}

	view := &model.UserView{FirstName: user.FirstName, LastName: user.LastName}
	if actor != nil && actor.ID == user.ID {
		view.Email = user.Email
	}
	return view, nil
}

// Update applies a partial profile edit. Only the user themselves may
// edit; changing the password requires the current one.
func (s *UserService) Update(ctx context.Context, actor *model.User, id int64, in UpdateUserInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/user: update: %w", err)
	}
	if actor.ID != user.ID {
		return apperror.Forbidden("Can not edit another user's information")
	}

	patch := model.UserPatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		inUse, err := s.store.Users().EmailInUse(ctx, email, user.ID)
		if err != nil {
			return fmt.Errorf("service/user: update: %w", err)
		}
		if inUse {
			return apperror.Forbidden("Email already in use")
		}
		patch.Email = &email
	}

	if in.Password != nil {
		hash, err := s.changePassword(user, *in.Password, in.CurrentPassword)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}

	if patch.IsEmpty() {
		return nil
	}

	if err := s.store.Users().Update(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("service/user: update: %w", err)
	}

	s.logger.Info("user updated", slog.Int64("userID", user.ID))
	return nil
}

// changePassword checks the password rules and returns the new hash.
func (s *UserService) changePassword(user *model.User, newPassword string, current *string) (string, error) {
	if current == nil {
		return "", apperror.ValidationFailed("currentPassword", "Bad Request: currentPassword is required to change password")
	}

	if err := s.passwords.Verify(user.PasswordHash, *current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", apperror.Unauthorized("Incorrect currentPassword")
		}
		return "", fmt.Errorf("service/user: verifying password: %w", err)
	}

	if newPassword == *current {
		return "", apperror.Forbidden("Identical current and new passwords")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("service/user: %w", err)
	}
	return hash, nil
}
