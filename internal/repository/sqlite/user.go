package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	q querier
}

var _ repository.UserRepository = (*UserDB)(nil)

// userColumns is shared by every single-user SELECT so scanUser stays in
// step with them.
const userColumns = `id, email, first_name, last_name, password,
	COALESCE(auth_token, ''), COALESCE(image_filename, '')`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.AuthToken,
		&u.ImageFilename,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	res, err := u.q.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, password)
		 VALUES (?, ?, ?, ?)`,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Forbidden("Email already in use")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID returns apperror.ErrNotFound if no user has that id.
func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return user, nil
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("No user with that email")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// GetByToken resolves a session token. The empty token never matches.
func (u *UserDB) GetByToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFoundMessage("No user for token")
	}
	user, err := scanUser(u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_token = ?`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("No user for token")
		}
		return nil, fmt.Errorf("sqlite: getting user by token: %w", err)
	}
	return user, nil
}

func (u *UserDB) EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := u.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = ? AND id <> ?)`,
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email: %w", err)
	}
	return exists, nil
}

// Update applies the non-nil fields of patch. An empty patch is a no-op.
func (u *UserDB) Update(ctx context.Context, id int64, patch model.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *patch.FirstName)
	}
	if patch.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *patch.LastName)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password = ?")
		args = append(args, *patch.PasswordHash)
	}
	args = append(args, id)

	res, err := u.q.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Forbidden("Email already in use")
		}
		return fmt.Errorf("sqlite: updating user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

func (u *UserDB) SetToken(ctx context.Context, id int64, token string) error {
	res, err := u.q.ExecContext(ctx,
		`UPDATE users SET auth_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting token for user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

func (u *UserDB) ClearToken(ctx context.Context, id int64) error {
	res, err := u.q.ExecContext(ctx,
		`UPDATE users SET auth_token = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: clearing token for user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

func (u *UserDB) SetImage(ctx context.Context, id int64, filename string) error {
	res, err := u.q.ExecContext(ctx,
		`UPDATE users SET image_filename = NULLIF(?, '') WHERE id = ?`, filename, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting image for user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}
