package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

// ActionService manages a user's wishlist and owned lists.
//
// A game is on at most one of the two lists for a given user: marking it
// owned drops it from the wishlist, and an owned game can not be
// wishlisted. Nobody may list a game they created.
type ActionService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewActionService(store repository.Store, logger *slog.Logger) *ActionService {
	return &ActionService{store: store, logger: logger}
}

// Wishlist adds the game to actor's wishlist. Repeating it is a no-op.
func (s *ActionService) Wishlist(ctx context.Context, actor *model.User, gameID int64) error {
	return s.act(ctx, actor, gameID, "wishlist", func(tx repository.Store, game *model.Game) error {
		if game.CreatorID == actor.ID {
			return apperror.Forbidden("Can not wishlist a game you created")
		}
		owned, err := tx.Actions().IsOwned(ctx, game.ID, actor.ID)
		if err != nil {
			return err
		}
		if owned {
			return apperror.Forbidden("Can not wishlist a game you have marked as owned")
		}
		wished, err := tx.Actions().IsWishlisted(ctx, game.ID, actor.ID)
		if err != nil || wished {
			return err
		}
		return tx.Actions().AddWishlist(ctx, game.ID, actor.ID)
	})
}

func (s *ActionService) Unwishlist(ctx context.Context, actor *model.User, gameID int64) error {
	return s.act(ctx, actor, gameID, "unwishlist", func(tx repository.Store, game *model.Game) error {
		removed, err := tx.Actions().RemoveWishlist(ctx, game.ID, actor.ID)
		if err != nil {
			return err
		}
		if !removed {
			return apperror.Forbidden("Can not unwishlist a game you do not currently wishlist")
		}
		return nil
	})
}

// Own marks the game as owned by actor and takes it off their wishlist.
func (s *ActionService) Own(ctx context.Context, actor *model.User, gameID int64) error {
	return s.act(ctx, actor, gameID, "own", func(tx repository.Store, game *model.Game) error {
		if game.CreatorID == actor.ID {
			return apperror.Forbidden("Can not mark a game you created as owned")
		}
		if _, err := tx.Actions().RemoveWishlist(ctx, game.ID, actor.ID); err != nil {
			return err
		}
		return tx.Actions().AddOwned(ctx, game.ID, actor.ID)
	})
}

func (s *ActionService) Unown(ctx context.Context, actor *model.User, gameID int64) error {
	return s.act(ctx, actor, gameID, "unown", func(tx repository.Store, game *model.Game) error {
		removed, err := tx.Actions().RemoveOwned(ctx, game.ID, actor.ID)
		if err != nil {
			return err
		}
		if !removed {
			return apperror.Forbidden("Can not unmark a game you do not currently own")
		}
		return nil
	})
}

// act runs the shared prologue (auth, load game) and then fn, all in one
// transaction.
func (s *ActionService) act(
	ctx context.Context,
	actor *model.User,
	gameID int64,
	name string,
	fn func(tx repository.Store, game *model.Game) error,
) error {
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		game, err := tx.Games().GetByID(ctx, gameID)
		if err != nil {
			return err
		}
		return fn(tx, game)
	})
	if err != nil {
		return fmt.Errorf("service/action: %s: %w", name, err)
	}

	s.logger.Info("game "+name,
		slog.Int64("gameID", gameID),
		slog.Int64("userID", actor.ID),
	)
	return nil
}
