package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
)

// newTestDB opens a fresh, migrated in-memory database for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := New(MemoryPath, logger)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user whose email is derived from first.
func createTestUser(t *testing.T, db *DB, first, last string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        first + "@example.com",
		FirstName:    first,
		LastName:     last,
		PasswordHash: "not-a-real-hash",
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestGame inserts a game with genre 1 unless the caller sets one.
func createTestGame(t *testing.T, db *DB, creatorID int64, title string, price int64, platforms ...int64) *model.Game {
	t.Helper()
	if len(platforms) == 0 {
		platforms = []int64{1}
	}
	game := &model.Game{
		Title:       title,
		Description: "about " + title,
		GenreID:     1,
		Price:       price,
		CreatorID:   creatorID,
		PlatformIDs: platforms,
	}
	if err := db.Games().Create(context.Background(), game); err != nil {
		t.Fatalf("failed to create test game: %v", err)
	}
	return game
}

func TestMigrationsSeedReferenceData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	genres, err := db.Games().Genres(ctx)
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}
	if len(genres) == 0 {
		t.Fatal("Genres() returned no rows; seed data missing")
	}

	platforms, err := db.Games().Platforms(ctx)
	if err != nil {
		t.Fatalf("Platforms() error = %v", err)
	}
	if len(platforms) == 0 {
		t.Fatal("Platforms() returned no rows; seed data missing")
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var id int64
	err := db.WithTx(ctx, func(tx repository.Store) error {
		u := &model.User{Email: "tx@example.com", FirstName: "T", LastName: "X", PasswordHash: "h"}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		id = u.ID
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	if _, err := db.Users().GetByID(ctx, id); err != nil {
		t.Errorf("user created inside committed tx not found: %v", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx repository.Store) error {
		u := &model.User{Email: "rollback@example.com", FirstName: "R", LastName: "B", PasswordHash: "h"}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	inUse, err := db.Users().EmailInUse(ctx, "rollback@example.com", 0)
	if err != nil {
		t.Fatalf("EmailInUse() error = %v", err)
	}
	if inUse {
		t.Error("user inserted in a rolled-back tx is still visible")
	}
}

func TestWithTx_Nested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(outer repository.Store) error {
		return outer.WithTx(ctx, func(inner repository.Store) error {
			if inner != outer {
				t.Error("nested WithTx should reuse the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
