package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/game-marketplace/internal/auth"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/ratelimit"
	"github.com/sakif/game-marketplace/internal/repository/sqlite"
	"github.com/sakif/game-marketplace/internal/storage"
)

// testEnv wires every service to a fresh in-memory database and a temp
// image directory.
type testEnv struct {
	db      *sqlite.DB
	files   *storage.ImageStore
	users   *UserService
	games   *GameService
	actions *ActionService
	reviews *ReviewService
	images  *ImageService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, ratelimit.NewNoOp(testLogger()))
}

func newTestEnvWithLimiter(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	logger := testLogger()

	db, err := sqlite.New(sqlite.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := storage.NewImageStore(t.TempDir(), logger)
	require.NoError(t, err)

	// bcrypt's minimum cost keeps the suite fast.
	passwords := auth.NewPasswordServiceWithCost(4)

	return &testEnv{
		db:      db,
		files:   files,
		users:   NewUserService(db, passwords, limiter, logger),
		games:   NewGameService(db, files, logger),
		actions: NewActionService(db, logger),
		reviews: NewReviewService(db, logger),
		images:  NewImageService(db, files, logger),
	}
}

// register creates a user named first with password "password1" and
// returns the stored row.
func (e *testEnv) register(t *testing.T, first string) *model.User {
	t.Helper()
	ctx := context.Background()
	id, err := e.users.Register(ctx, RegisterInput{
		Email:     first + "@example.com",
		FirstName: first,
		LastName:  "Tester",
		Password:  "password1",
	})
	require.NoError(t, err)

	user, err := e.db.Users().GetByID(ctx, id)
	require.NoError(t, err)
	return user
}

func (e *testEnv) createGame(t *testing.T, creator *model.User, title string, price int64, platforms ...int64) int64 {
	t.Helper()
	if len(platforms) == 0 {
		platforms = []int64{1}
	}
	id, err := e.games.Create(context.Background(), creator, CreateGameInput{
		Title:       title,
		Description: "about " + title,
		GenreID:     ptr[int64](1),
		Price:       &price,
		PlatformIDs: platforms,
	})
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T { return &v }
