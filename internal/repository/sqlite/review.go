package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

// ReviewDB implements repository.ReviewRepository.
type ReviewDB struct {
	q querier
}

var _ repository.ReviewRepository = (*ReviewDB)(nil)

// ListByGame returns the game's reviews, newest first.
func (r *ReviewDB) ListByGame(ctx context.Context, gameID int64) ([]model.Review, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT r.user_id, r.rating, COALESCE(r.review, ''), u.first_name, u.last_name, r.reviewed_at
		 FROM game_reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.game_id = ?
		 ORDER BY r.reviewed_at DESC, r.id DESC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews of game %d: %w", gameID, err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ReviewerID,
			&rv.Rating,
			&rv.Review,
			&rv.ReviewerFirstName,
			&rv.ReviewerLastName,
			&rv.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return reviews, nil
}

func (r *ReviewDB) HasReviewed(ctx context.Context, gameID, userID int64) (bool, error) {
	var ok bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_reviews WHERE game_id = ? AND user_id = ?)`,
		gameID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking review (game %d, user %d): %w", gameID, userID, err)
	}
	return ok, nil
}

// Create inserts a review. A review without text leaves the column NULL
// instead of storing "".
func (r *ReviewDB) Create(ctx context.Context, review model.NewReview) error {
	now := time.Now().UTC()

	var err error
	if review.Review == "" {
		_, err = r.q.ExecContext(ctx,
			`INSERT INTO game_reviews (game_id, user_id, rating, reviewed_at) VALUES (?, ?, ?, ?)`,
			review.GameID, review.UserID, review.Rating, now)
	} else {
		_, err = r.q.ExecContext(ctx,
			`INSERT INTO game_reviews (game_id, user_id, rating, review, reviewed_at) VALUES (?, ?, ?, ?, ?)`,
			review.GameID, review.UserID, review.Rating, review.Review, now)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Forbidden("You have already reviewed this game")
		}
		return fmt.Errorf("sqlite: inserting review (game %d, user %d): %w", review.GameID, review.UserID, err)
	}
	return nil
}
