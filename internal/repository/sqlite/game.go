package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

// GameDB implements repository.GameRepository.
type GameDB struct {
	q querier
}

var _ repository.GameRepository = (*GameDB)(nil)

// =========================================================================
// SEARCH
// =========================================================================

// sortOrder maps each of model.SortOrders to a fixed ORDER BY expression.
// Nothing from the request reaches the ORDER BY clause except through
// this map.
var sortOrder = map[model.SortBy]string{
	model.SortAlphabeticalAsc:  "g.title ASC",
	model.SortAlphabeticalDesc: "g.title DESC",
	model.SortPriceAsc:         "g.price ASC",
	model.SortPriceDesc:        "g.price DESC",
	model.SortCreatedAsc:       "g.creation_date ASC",
	model.SortCreatedDesc:      "g.creation_date DESC",
	model.SortRatingAsc:        "rating ASC",
	model.SortRatingDesc:       "rating DESC",
}

// Every review row is repeated once per platform row by the two joins, so
// AVG over the group is unchanged and DISTINCT removes the repeated
// platform ids.
const searchSelect = `
SELECT g.id, g.title, g.genre_id, g.creation_date, g.creator_id, g.price,
       u.first_name, u.last_name,
       COALESCE(ROUND(AVG(r.rating), 1), 0) AS rating,
       COALESCE(group_concat(DISTINCT gp.platform_id), '') AS platform_ids
FROM games g
JOIN users u ON u.id = g.creator_id
LEFT JOIN game_reviews r ON r.game_id = g.id
LEFT JOIN game_platforms gp ON gp.game_id = g.id`

// likeEscaper makes %, _ and the escape character itself match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildSearchQuery turns a GameQuery into SQL text plus its arguments.
// Filters are ANDed together and each one is added only when set.
func buildSearchQuery(q model.GameQuery) (string, []any, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = model.DefaultSort
	}
	order, ok := sortOrder[sortBy]
	if !ok {
		return "", nil, apperror.ValidationFailed("sortBy", fmt.Sprintf("Unknown sortBy value %q", q.SortBy))
	}

	var (
		where []string
		args  []any
	)

	if q.Q != "" {
		pattern := "%" + likeEscaper.Replace(q.Q) + "%"
		where = append(where, `(g.title LIKE ? ESCAPE '\' OR g.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(q.GenreIDs) > 0 {
		where = append(where, "g.genre_id IN ("+placeholders(len(q.GenreIDs))+")")
		args = append(args, int64Args(q.GenreIDs)...)
	}
	if len(q.PlatformIDs) > 0 {
		where = append(where,
			"g.id IN (SELECT game_id FROM game_platforms WHERE platform_id IN ("+placeholders(len(q.PlatformIDs))+"))")
		args = append(args, int64Args(q.PlatformIDs)...)
	}
	if q.MaxPrice != nil {
		where = append(where, "g.price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.CreatorID != nil {
		where = append(where, "g.creator_id = ?")
		args = append(args, *q.CreatorID)
	}
	if q.ReviewerID != nil {
		where = append(where, "g.id IN (SELECT game_id FROM game_reviews WHERE user_id = ?)")
		args = append(args, *q.ReviewerID)
	}
	if q.WishlistedByUserID != 0 {
		where = append(where, "g.id IN (SELECT game_id FROM wishlist WHERE user_id = ?)")
		args = append(args, q.WishlistedByUserID)
	}
	if q.OwnedByUserID != 0 {
		where = append(where, "g.id IN (SELECT game_id FROM owned WHERE user_id = ?)")
		args = append(args, q.OwnedByUserID)
	}

	var sb strings.Builder
	sb.WriteString(searchSelect)
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, "\n  AND "))
	}
	sb.WriteString("\nGROUP BY g.id")
	// g.id breaks ties so pages don't shuffle between requests.
	sb.WriteString("\nORDER BY " + order + ", g.id ASC")

	return sb.String(), args, nil
}

// Search returns every game matching q, ordered. Pagination is the
// caller's job.
func (g *GameDB) Search(ctx context.Context, q model.GameQuery) ([]model.GameSummary, error) {
	query, args, err := buildSearchQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := g.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching games: %w", err)
	}
	defer rows.Close()

	games := []model.GameSummary{}
	for rows.Next() {
		var (
			s         model.GameSummary
			platforms string
		)
		if err := rows.Scan(
			&s.GameID,
			&s.Title,
			&s.GenreID,
			&s.CreationDate,
			&s.CreatorID,
			&s.Price,
			&s.CreatorFirstName,
			&s.CreatorLastName,
			&s.Rating,
			&platforms,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning game row: %w", err)
		}
		if s.PlatformIDs, err = parseIDList(platforms); err != nil {
			return nil, fmt.Errorf("sqlite: game %d platforms: %w", s.GameID, err)
		}
		games = append(games, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating games: %w", err)
	}

	return games, nil
}

// parseIDList parses group_concat output ("3,1,2") into sorted ids.
func parseIDList(s string) ([]int64, error) {
	ids := []int64{}
	if s == "" {
		return ids, nil
	}
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// =========================================================================
// SINGLE GAME
// =========================================================================

// GetByID loads the game row and its platform ids.
func (g *GameDB) GetByID(ctx context.Context, id int64) (*model.Game, error) {
	var game model.Game
	err := g.q.QueryRowContext(ctx,
		`SELECT id, title, description, genre_id, price, creator_id, creation_date,
		        COALESCE(image_filename, '')
		 FROM games WHERE id = ?`,
		id,
	).Scan(
		&game.ID,
		&game.Title,
		&game.Description,
		&game.GenreID,
		&game.Price,
		&game.CreatorID,
		&game.CreationDate,
		&game.ImageFilename,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("game", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting game %d: %w", id, err)
	}

	game.PlatformIDs, err = g.platformIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (g *GameDB) platformIDs(ctx context.Context, gameID int64) ([]int64, error) {
	rows, err := g.q.QueryContext(ctx,
		`SELECT platform_id FROM game_platforms WHERE game_id = ? ORDER BY platform_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing platforms of game %d: %w", gameID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning platform id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetDetail builds the GET /games/{id} view in one round trip.
func (g *GameDB) GetDetail(ctx context.Context, id int64) (*model.GameDetail, error) {
	var (
		d         model.GameDetail
		platforms string
	)
	err := g.q.QueryRowContext(ctx, `
		SELECT g.id, g.title, g.description, g.genre_id, g.creation_date, g.creator_id, g.price,
		       u.first_name, u.last_name,
		       COALESCE((SELECT ROUND(AVG(rating), 1) FROM game_reviews WHERE game_id = g.id), 0),
		       COALESCE((SELECT group_concat(platform_id) FROM game_platforms WHERE game_id = g.id), ''),
		       (SELECT COUNT(*) FROM owned WHERE game_id = g.id),
		       (SELECT COUNT(*) FROM wishlist WHERE game_id = g.id)
		FROM games g
		JOIN users u ON u.id = g.creator_id
		WHERE g.id = ?`,
		id,
	).Scan(
		&d.GameID,
		&d.Title,
		&d.Description,
		&d.GenreID,
		&d.CreationDate,
		&d.CreatorID,
		&d.Price,
		&d.CreatorFirstName,
		&d.CreatorLastName,
		&d.Rating,
		&platforms,
		&d.NumberOfOwners,
		&d.NumberOfWishlists,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("game", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting game detail %d: %w", id, err)
	}

	if d.PlatformIDs, err = parseIDList(platforms); err != nil {
		return nil, fmt.Errorf("sqlite: game %d platforms: %w", id, err)
	}
	return &d, nil
}

func (g *GameDB) TitleInUse(ctx context.Context, title string, excludeID int64) (bool, error) {
	var exists bool
	err := g.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM games WHERE title = ? AND id <> ?)`,
		title, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking title: %w", err)
	}
	return exists, nil
}

// =========================================================================
// MUTATIONS
// =========================================================================

// Create inserts the game row and then its platform links. Callers run it
// inside WithTx so a failed link insert leaves no orphan game.
func (g *GameDB) Create(ctx context.Context, game *model.Game) error {
	if game.CreationDate.IsZero() {
		game.CreationDate = time.Now().UTC()
	}

	res, err := g.q.ExecContext(ctx,
		`INSERT INTO games (title, description, creation_date, creator_id, genre_id, price)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		game.Title,
		game.Description,
		game.CreationDate,
		game.CreatorID,
		game.GenreID,
		game.Price,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Forbidden("Game title already exists")
		}
		return fmt.Errorf("sqlite: inserting game %q: %w", game.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new game id: %w", err)
	}
	game.ID = id

	return g.AddPlatforms(ctx, id, game.PlatformIDs)
}

// Update changes the game's own columns. Platform changes go through
// AddPlatforms / RemovePlatforms.
func (g *GameDB) Update(ctx context.Context, id int64, patch model.GamePatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.GenreID != nil {
		sets = append(sets, "genre_id = ?")
		args = append(args, *patch.GenreID)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := g.q.ExecContext(ctx,
		`UPDATE games SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Forbidden("Game title already exists")
		}
		return fmt.Errorf("sqlite: updating game %d: %w", id, err)
	}
	return requireAffected(res, "game", id)
}

func (g *GameDB) AddPlatforms(ctx context.Context, gameID int64, platformIDs []int64) error {
	if len(platformIDs) == 0 {
		return nil
	}

	values := strings.TrimSuffix(strings.Repeat("(?, ?), ", len(platformIDs)), ", ")
	args := make([]any, 0, 2*len(platformIDs))
	for _, pid := range platformIDs {
		args = append(args, gameID, pid)
	}

	_, err := g.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO game_platforms (game_id, platform_id) VALUES `+values, args...)
	if err != nil {
		return fmt.Errorf("sqlite: linking platforms to game %d: %w", gameID, err)
	}
	return nil
}

func (g *GameDB) RemovePlatforms(ctx context.Context, gameID int64, platformIDs []int64) error {
	if len(platformIDs) == 0 {
		return nil
	}

	args := append([]any{gameID}, int64Args(platformIDs)...)
	_, err := g.q.ExecContext(ctx,
		`DELETE FROM game_platforms WHERE game_id = ? AND platform_id IN (`+placeholders(len(platformIDs))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("sqlite: unlinking platforms from game %d: %w", gameID, err)
	}
	return nil
}

// Delete removes every row that references the game, then the game.
// Reviews are not touched; the service refuses to delete a reviewed game.
func (g *GameDB) Delete(ctx context.Context, id int64) error {
	for _, stmt := range []string{
		`DELETE FROM game_platforms WHERE game_id = ?`,
		`DELETE FROM wishlist WHERE game_id = ?`,
		`DELETE FROM owned WHERE game_id = ?`,
	} {
		if _, err := g.q.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: clearing links of game %d: %w", id, err)
		}
	}

	res, err := g.q.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting game %d: %w", id, err)
	}
	return requireAffected(res, "game", id)
}

func (g *GameDB) CountReviews(ctx context.Context, id int64) (int, error) {
	var n int
	err := g.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_reviews WHERE game_id = ?`, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reviews of game %d: %w", id, err)
	}
	return n, nil
}

func (g *GameDB) SetImage(ctx context.Context, id int64, filename string) error {
	res, err := g.q.ExecContext(ctx,
		`UPDATE games SET image_filename = NULLIF(?, '') WHERE id = ?`, filename, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting image for game %d: %w", id, err)
	}
	return requireAffected(res, "game", id)
}

// =========================================================================
// REFERENCE DATA
// =========================================================================

func (g *GameDB) Genres(ctx context.Context) ([]model.Genre, error) {
	rows, err := g.q.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing genres: %w", err)
	}
	defer rows.Close()

	genres := []model.Genre{}
	for rows.Next() {
		var genre model.Genre
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning genre: %w", err)
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

func (g *GameDB) Platforms(ctx context.Context) ([]model.Platform, error) {
	rows, err := g.q.QueryContext(ctx, `SELECT id, name FROM platforms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing platforms: %w", err)
	}
	defer rows.Close()

	platforms := []model.Platform{}
	for rows.Next() {
		var p model.Platform
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

func (g *GameDB) MissingGenres(ctx context.Context, ids []int64) ([]int64, error) {
	return g.missing(ctx, "genres", ids)
}

func (g *GameDB) MissingPlatforms(ctx context.Context, ids []int64) ([]int64, error) {
	return g.missing(ctx, "platforms", ids)
}

// missing reports which ids have no row in table. table is one of the
// two constants above, never request input.
func (g *GameDB) missing(ctx context.Context, table string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := g.q.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking %s: %w", table, err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s id: %w", table, err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
