package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
	"github.com/sakif/game-marketplace/internal/storage"
)

// SearchInput is a GET /games request after the handler has parsed the
// query string into typed values. The json tags name the query
// parameters so validation messages match what the client sent.
type SearchInput struct {
	Q              string  `json:"q"          validate:"max=64"`
	StartIndex     int     `json:"startIndex" validate:"gte=0"`
	Count          int     `json:"count"      validate:"gte=0"`
	GenreIDs       []int64 `json:"genreIds"`
	PlatformIDs    []int64 `json:"platformIds"`
	Price          *int64  `json:"price"      validate:"omitnil,gte=0"`
	CreatorID      *int64  `json:"creatorId"  validate:"omitnil,gte=0"`
	ReviewerID     *int64  `json:"reviewerId" validate:"omitnil,gte=0"`
	SortBy         string  `json:"sortBy"`
	OwnedByMe      bool    `json:"ownedByMe"`
	WishlistedByMe bool    `json:"wishlistedByMe"`
}

type CreateGameInput struct {
	Title       string  `json:"title"       validate:"required,min=1,max=128"`
	Description string  `json:"description" validate:"required,min=1,max=1024"`
	GenreID     *int64  `json:"genreId"     validate:"required,gte=0"`
	Price       *int64  `json:"price"       validate:"required,gte=0"`
	PlatformIDs []int64 `json:"platformIds" validate:"required,min=1,unique"`
}

// EditGameInput is a partial update. A non-nil PlatformIDs replaces the
// whole platform set.
type EditGameInput struct {
	Title       *string `json:"title"       validate:"omitnil,min=1,max=128"`
	Description *string `json:"description" validate:"omitnil,min=1,max=1024"`
	GenreID     *int64  `json:"genreId"     validate:"omitnil,gte=0"`
	Price       *int64  `json:"price"       validate:"omitnil,gte=0"`
	PlatformIDs []int64 `json:"platformIds" validate:"omitnil,min=1,unique"`
}

// GameService owns the game catalogue: search, CRUD and the genre and
// platform reference lists.
type GameService struct {
	store  repository.Store
	images *storage.ImageStore
	logger *slog.Logger
}

func NewGameService(store repository.Store, images *storage.ImageStore, logger *slog.Logger) *GameService {
	return &GameService{store: store, images: images, logger: logger}
}

// Search runs a filtered, sorted game query. Count in the result is the
// size of the filtered set; StartIndex and Count then cut the page.
func (s *GameService) Search(ctx context.Context, actor *model.User, in SearchInput) (*model.SearchResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	sortBy, ok := model.ParseSortBy(in.SortBy)
	if !ok {
		return nil, apperror.ValidationFailed("sortBy",
			fmt.Sprintf("Bad Request: data/sortBy must be one of the supported orderings, got %q", in.SortBy))
	}

	if err := s.checkReferences(ctx, s.store, in.GenreIDs, in.PlatformIDs); err != nil {
		return nil, err
	}

	if (in.OwnedByMe || in.WishlistedByMe) && actor == nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	q := model.GameQuery{
		Q:           in.Q,
		GenreIDs:    in.GenreIDs,
		PlatformIDs: in.PlatformIDs,
		MaxPrice:    in.Price,
		CreatorID:   in.CreatorID,
		ReviewerID:  in.ReviewerID,
		SortBy:      sortBy,
		StartIndex:  in.StartIndex,
		Count:       in.Count,
	}
	if in.OwnedByMe {
		q.OwnedByUserID = actor.ID
	}
	if in.WishlistedByMe {
		q.WishlistedByUserID = actor.ID
	}

	games, err := s.store.Games().Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service/game: search: %w", err)
	}

	return &model.SearchResult{
		Games: paginate(games, q.StartIndex, q.Count),
		Count: len(games),
	}, nil
}

// paginate returns games[start:start+count], clamped to the slice. A
// count of 0 means "to the end".
func paginate(games []model.GameSummary, start, count int) []model.GameSummary {
	if start >= len(games) {
		return []model.GameSummary{}
	}
	end := len(games)
	if count > 0 && count < end-start {
		end = start + count
	}
	return games[start:end]
}

// checkReferences turns unknown genre or platform ids into a 400.
func (s *GameService) checkReferences(ctx context.Context, store repository.Store, genreIDs, platformIDs []int64) error {
	if len(genreIDs) > 0 {
		missing, err := store.Games().MissingGenres(ctx, genreIDs)
		if err != nil {
			return fmt.Errorf("service/game: checking genres: %w", err)
		}
		if len(missing) > 0 {
			return apperror.ValidationFailed("genreId", fmt.Sprintf("No genre with id %d", missing[0]))
		}
	}
	if len(platformIDs) > 0 {
		missing, err := store.Games().MissingPlatforms(ctx, platformIDs)
		if err != nil {
			return fmt.Errorf("service/game: checking platforms: %w", err)
		}
		if len(missing) > 0 {
			return apperror.ValidationFailed("platformIds", fmt.Sprintf("No platform with id %d", missing[0]))
		}
	}
	return nil
}

// Get returns the full view of one game.
func (s *GameService) Get(ctx context.Context, id int64) (*model.GameDetail, error) {
	detail, err := s.store.Games().GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/game: get: %w", err)
	}
	return detail, nil
}

func (s *GameService) Genres(ctx context.Context) ([]model.Genre, error) {
	genres, err := s.store.Games().Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/game: genres: %w", err)
	}
	return genres, nil
}

func (s *GameService) Platforms(ctx context.Context) ([]model.Platform, error) {
	platforms, err := s.store.Games().Platforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/game: platforms: %w", err)
	}
	return platforms, nil
}

// Create adds a game owned by actor and returns its id. The game row and
// its platform links are written in one transaction.
func (s *GameService) Create(ctx context.Context, actor *model.User, in CreateGameInput) (int64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}
	if actor == nil {
		return 0, apperror.Unauthorized("Unauthorized")
	}

	game := &model.Game{
		Title:       in.Title,
		Description: in.Description,
		GenreID:     *in.GenreID,
		Price:       *in.Price,
		CreatorID:   actor.ID,
		PlatformIDs: in.PlatformIDs,
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		taken, err := tx.Games().TitleInUse(ctx, game.Title, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Forbidden("Game title already exists")
		}
		if err := s.checkReferences(ctx, tx, []int64{game.GenreID}, game.PlatformIDs); err != nil {
			return err
		}
		return tx.Games().Create(ctx, game)
	})
	if err != nil {
		return 0, fmt.Errorf("service/game: create: %w", err)
	}

	s.logger.Info("game created",
		slog.Int64("gameID", game.ID),
		slog.Int64("creatorID", actor.ID),
	)
	return game.ID, nil
}

// Edit applies a partial update. Only the creator may edit. An empty
// patch succeeds without touching the row.
func (s *GameService) Edit(ctx context.Context, actor *model.User, id int64, in EditGameInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	patch := model.GamePatch{
		Title:       in.Title,
		Description: in.Description,
		GenreID:     in.GenreID,
		Price:       in.Price,
		PlatformIDs: in.PlatformIDs,
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		game, err := tx.Games().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if game.CreatorID != actor.ID {
			return apperror.Forbidden("Only the creator of a game may change it")
		}
		if patch.IsEmpty() {
			return nil
		}

		if patch.Title != nil {
			taken, err := tx.Games().TitleInUse(ctx, *patch.Title, game.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperror.Forbidden("Game title already exists")
			}
		}

		var genres []int64
		if patch.GenreID != nil {
			genres = []int64{*patch.GenreID}
		}
		if err := s.checkReferences(ctx, tx, genres, patch.PlatformIDs); err != nil {
			return err
		}

		if err := tx.Games().Update(ctx, game.ID, patch); err != nil {
			return err
		}
		if patch.PlatformIDs == nil {
			return nil
		}

		add, remove := diffIDs(game.PlatformIDs, patch.PlatformIDs)
		if err := tx.Games().RemovePlatforms(ctx, game.ID, remove); err != nil {
			return err
		}
		return tx.Games().AddPlatforms(ctx, game.ID, add)
	})
	if err != nil {
		return fmt.Errorf("service/game: edit: %w", err)
	}

	s.logger.Info("game edited", slog.Int64("gameID", id))
	return nil
}

// diffIDs returns the ids in want but not in have, and those in have but
// not in want.
func diffIDs(have, want []int64) (add, remove []int64) {
	for _, id := range want {
		if !slices.Contains(have, id) {
			add = append(add, id)
		}
	}
	for _, id := range have {
		if !slices.Contains(want, id) {
			remove = append(remove, id)
		}
	}
	return add, remove
}

// Delete removes a game the actor created. Games with reviews are kept.
// The cover image file is removed after the rows are gone.
func (s *GameService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	var image string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		game, err := tx.Games().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if game.CreatorID != actor.ID {
			return apperror.Forbidden("Only the creator of a game may delete it")
		}

		reviews, err := tx.Games().CountReviews(ctx, game.ID)
		if err != nil {
			return err
		}
		if reviews > 0 {
			return apperror.Forbidden("Can not delete a game with one or more reviews")
		}

		image = game.ImageFilename
		return tx.Games().Delete(ctx, game.ID)
	})
	if err != nil {
		return fmt.Errorf("service/game: delete: %w", err)
	}

	if image != "" {
		if err := s.images.Remove(image); err != nil {
			s.logger.Warn("removing deleted game's image",
				slog.Int64("gameID", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("game deleted", slog.Int64("gameID", id))
	return nil
}
