package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/game-marketplace/internal/repository"
)

// ActionDB implements repository.ActionRepository over the wishlist and
// owned tables. Both share the (game_id, user_id) primary key, so the
// insert methods are idempotent.
type ActionDB struct {
	q querier
}

var _ repository.ActionRepository = (*ActionDB)(nil)

func (a *ActionDB) IsWishlisted(ctx context.Context, gameID, userID int64) (bool, error) {
	return a.exists(ctx, `SELECT EXISTS (SELECT 1 FROM wishlist WHERE game_id = ? AND user_id = ?)`, gameID, userID)
}

func (a *ActionDB) IsOwned(ctx context.Context, gameID, userID int64) (bool, error) {
	return a.exists(ctx, `SELECT EXISTS (SELECT 1 FROM owned WHERE game_id = ? AND user_id = ?)`, gameID, userID)
}

func (a *ActionDB) AddWishlist(ctx context.Context, gameID, userID int64) error {
	_, err := a.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO wishlist (game_id, user_id) VALUES (?, ?)`, gameID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: wishlisting game %d for user %d: %w", gameID, userID, err)
	}
	return nil
}

func (a *ActionDB) RemoveWishlist(ctx context.Context, gameID, userID int64) (bool, error) {
	return a.remove(ctx, `DELETE FROM wishlist WHERE game_id = ? AND user_id = ?`, gameID, userID)
}

func (a *ActionDB) AddOwned(ctx context.Context, gameID, userID int64) error {
	_, err := a.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO owned (game_id, user_id) VALUES (?, ?)`, gameID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: marking game %d owned by user %d: %w", gameID, userID, err)
	}
	return nil
}

func (a *ActionDB) RemoveOwned(ctx context.Context, gameID, userID int64) (bool, error) {
	return a.remove(ctx, `DELETE FROM owned WHERE game_id = ? AND user_id = ?`, gameID, userID)
}

func (a *ActionDB) exists(ctx context.Context, query string, gameID, userID int64) (bool, error) {
	var ok bool
	if err := a.q.QueryRowContext(ctx, query, gameID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("sqlite: checking action (game %d, user %d): %w", gameID, userID, err)
	}
	return ok, nil
}

func (a *ActionDB) remove(ctx context.Context, query string, gameID, userID int64) (bool, error) {
	res, err := a.q.ExecContext(ctx, query, gameID, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing action (game %d, user %d): %w", gameID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
