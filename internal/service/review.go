package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

type ReviewInput struct {
	Rating *int    `json:"rating" validate:"required,gte=1,lte=10"`
	Review *string `json:"review" validate:"omitnil,max=512"`
}

type ReviewService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewReviewService(store repository.Store, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: store, logger: logger}
}

// List returns the reviews of a game, newest first. A game nobody has
// reviewed gives an empty slice.
func (s *ReviewService) List(ctx context.Context, gameID int64) ([]model.Review, error) {
	if _, err := s.store.Games().GetByID(ctx, gameID); err != nil {
		return nil, fmt.Errorf("service/review: list: %w", err)
	}

	reviews, err := s.store.Reviews().ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("service/review: list: %w", err)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

// Post records actor's single review of a game they did not create.
func (s *ReviewService) Post(ctx context.Context, actor *model.User, gameID int64, in ReviewInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	review := model.NewReview{
		GameID: gameID,
		UserID: actor.ID,
		Rating: *in.Rating,
	}
	if in.Review != nil {
		review.Review = *in.Review
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		game, err := tx.Games().GetByID(ctx, gameID)
		if err != nil {
			return err
		}
		if game.CreatorID == actor.ID {
			return apperror.Forbidden("Can not review your own game")
		}

		done, err := tx.Reviews().HasReviewed(ctx, game.ID, actor.ID)
		if err != nil {
			return err
		}
		if done {
			return apperror.Forbidden("You have already reviewed this game")
		}
		return tx.Reviews().Create(ctx, review)
	})
	if err != nil {
		return fmt.Errorf("service/review: post: %w", err)
	}

	s.logger.Info("review posted",
		slog.Int64("gameID", gameID),
		slog.Int64("userID", actor.ID),
		slog.Int("rating", review.Rating),
	)
	return nil
}
