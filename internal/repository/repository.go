// Package repository declares the persistence contracts the services
// depend on. The sqlite sub-package is the only implementation.
package repository

import (
	"context"

	"github.com/sakif/game-marketplace/internal/model"
)

// Store hands out the per-entity repositories and runs transactions.
//
// Inside WithTx every repository obtained from the tx Store shares the
// transaction. Returning an error from fn rolls it back; returning nil
// commits. Calling WithTx on a Store that is already transactional reuses
// the outer transaction.
type Store interface {
	Users() UserRepository
	Games() GameRepository
	Actions() ActionRepository
	Reviews() ReviewRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	// Create inserts the user and sets user.ID.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByToken(ctx context.Context, token string) (*model.User, error)
	EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) error
	SetToken(ctx context.Context, id int64, token string) error
	ClearToken(ctx context.Context, id int64) error
	// SetImage stores filename as the user's image; "" clears it.
	SetImage(ctx context.Context, id int64, filename string) error
}

type GameRepository interface {
	Search(ctx context.Context, q model.GameQuery) ([]model.GameSummary, error)
	GetByID(ctx context.Context, id int64) (*model.Game, error)
	GetDetail(ctx context.Context, id int64) (*model.GameDetail, error)
	TitleInUse(ctx context.Context, title string, excludeID int64) (bool, error)
	// Create inserts the game and its platform links and sets game.ID.
	Create(ctx context.Context, game *model.Game) error
	Update(ctx context.Context, id int64, patch model.GamePatch) error
	AddPlatforms(ctx context.Context, gameID int64, platformIDs []int64) error
	RemovePlatforms(ctx context.Context, gameID int64, platformIDs []int64) error
	// Delete removes the game together with its platform, wishlist and
	// owned rows.
	Delete(ctx context.Context, id int64) error
	CountReviews(ctx context.Context, id int64) (int, error)
	SetImage(ctx context.Context, id int64, filename string) error

	Genres(ctx context.Context) ([]model.Genre, error)
	Platforms(ctx context.Context) ([]model.Platform, error)
	// MissingGenres and MissingPlatforms return the ids absent from the
	// reference tables, in input order.
	MissingGenres(ctx context.Context, ids []int64) ([]int64, error)
	MissingPlatforms(ctx context.Context, ids []int64) ([]int64, error)
}

// ActionRepository covers the wishlist and owned join tables.
// The Remove methods report whether a row was deleted.
type ActionRepository interface {
	IsWishlisted(ctx context.Context, gameID, userID int64) (bool, error)
	IsOwned(ctx context.Context, gameID, userID int64) (bool, error)
	AddWishlist(ctx context.Context, gameID, userID int64) error
	RemoveWishlist(ctx context.Context, gameID, userID int64) (bool, error)
	AddOwned(ctx context.Context, gameID, userID int64) error
	RemoveOwned(ctx context.Context, gameID, userID int64) (bool, error)
}

type ReviewRepository interface {
	ListByGame(ctx context.Context, gameID int64) ([]model.Review, error)
	HasReviewed(ctx context.Context, gameID, userID int64) (bool, error)
	Create(ctx context.Context, review model.NewReview) error
}
