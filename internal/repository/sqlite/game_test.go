package sqlite

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
)

func ptr[T any](v T) *T { return &v }

// =========================================================================
// QUERY BUILDER
// =========================================================================

func TestBuildSearchQuery_BindsEveryValue(t *testing.T) {
	q := model.GameQuery{
		Q:                  "x' OR 1=1 --",
		GenreIDs:           []int64{1, 2},
		PlatformIDs:        []int64{3},
		MaxPrice:           ptr(int64(999)),
		CreatorID:          ptr(int64(5)),
		ReviewerID:         ptr(int64(6)),
		WishlistedByUserID: 7,
		OwnedByUserID:      8,
		SortBy:             model.SortPriceDesc,
	}

	query, args, err := buildSearchQuery(q)
	if err != nil {
		t.Fatalf("buildSearchQuery() error = %v", err)
	}

	if strings.Contains(query, "OR 1=1") || strings.Contains(query, "999") {
		t.Errorf("request values leaked into SQL text:\n%s", query)
	}
	if got, want := strings.Count(query, "?"), len(args); got != want {
		t.Errorf("query has %d placeholders but %d args", got, want)
	}
	// 2 (q) + 2 (genres) + 1 (platform) + price + creator + reviewer + wishlist + owned
	if len(args) != 10 {
		t.Errorf("len(args) = %d, want 10", len(args))
	}
	if !strings.Contains(query, "ORDER BY g.price DESC, g.id ASC") {
		t.Errorf("query missing expected ORDER BY:\n%s", query)
	}
}

func TestBuildSearchQuery_NoFilters(t *testing.T) {
	query, args, err := buildSearchQuery(model.GameQuery{})
	if err != nil {
		t.Fatalf("buildSearchQuery() error = %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Errorf("unfiltered query should have no WHERE clause:\n%s", query)
	}
	if len(args) != 0 {
		t.Errorf("len(args) = %d, want 0", len(args))
	}
	if !strings.Contains(query, "ORDER BY g.creation_date ASC") {
		t.Errorf("default sort should be CREATED_ASC:\n%s", query)
	}
}

func TestBuildSearchQuery_UnknownSort(t *testing.T) {
	_, _, err := buildSearchQuery(model.GameQuery{SortBy: "TITLE; DROP TABLE games"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("buildSearchQuery() error = %v, want ErrValidation", err)
	}
}

func TestSortOrder_CoversEveryModelOrdering(t *testing.T) {
	orders := model.SortOrders()
	for _, sb := range orders {
		if _, ok := sortOrder[sb]; !ok {
			t.Errorf("sortOrder has no entry for %s", sb)
		}
		if _, _, err := buildSearchQuery(model.GameQuery{SortBy: sb}); err != nil {
			t.Errorf("buildSearchQuery(%s) error = %v", sb, err)
		}
	}
	for sb := range sortOrder {
		if !slices.Contains(orders, sb) {
			t.Errorf("sortOrder has %s, which model.ParseSortBy rejects", sb)
		}
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"", []int64{}},
		{"3", []int64{3}},
		{"3,1,2", []int64{1, 2, 3}},
		{"2,2,1", []int64{1, 2}},
	}
	for _, tt := range tests {
		got, err := parseIDList(tt.in)
		if err != nil {
			t.Fatalf("parseIDList(%q) error = %v", tt.in, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("parseIDList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// =========================================================================
// SEARCH AGAINST A REAL DATABASE
// =========================================================================

func searchIDs(t *testing.T, db *DB, q model.GameQuery) []int64 {
	t.Helper()
	games, err := db.Games().Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	ids := make([]int64, len(games))
	for i, g := range games {
		ids[i] = g.GameID
	}
	return ids
}

func addReview(t *testing.T, db *DB, gameID, userID int64, rating int) {
	t.Helper()
	err := db.Reviews().Create(context.Background(), model.NewReview{GameID: gameID, UserID: userID, Rating: rating})
	if err != nil {
		t.Fatalf("failed to create review: %v", err)
	}
}

func TestSearch_NoFiltersReturnsEachGameOnce(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "maker", "M")
	r1 := createTestUser(t, db, "r1", "R")
	r2 := createTestUser(t, db, "r2", "R")

	a := createTestGame(t, db, creator.ID, "Alpha", 1000, 1, 2, 3)
	b := createTestGame(t, db, creator.ID, "Beta", 500, 2)
	addReview(t, db, a.ID, r1.ID, 8)
	addReview(t, db, a.ID, r2.ID, 5)

	games, err := db.Games().Search(context.Background(), model.GameQuery{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Search() returned %d games, want 2", len(games))
	}

	byID := map[int64]model.GameSummary{}
	for _, g := range games {
		byID[g.GameID] = g
	}

	if got := byID[a.ID]; got.Rating != 6.5 || !slices.Equal(got.PlatformIDs, []int64{1, 2, 3}) {
		t.Errorf("Alpha = rating %v platforms %v, want 6.5 [1 2 3]", got.Rating, got.PlatformIDs)
	}
	if got := byID[b.ID]; got.Rating != 0 || !slices.Equal(got.PlatformIDs, []int64{2}) {
		t.Errorf("Beta = rating %v platforms %v, want 0 [2]", got.Rating, got.PlatformIDs)
	}
	if byID[a.ID].CreatorFirstName != "maker" {
		t.Errorf("CreatorFirstName = %q, want maker", byID[a.ID].CreatorFirstName)
	}
}

func TestSearch_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice", "A")
	bob := createTestUser(t, db, "bob", "B")

	cheap := createTestGame(t, db, alice.ID, "Cheap Puzzle", 100, 1)
	pricey := createTestGame(t, db, alice.ID, "Pricey Racer", 9000, 2, 3)
	bobs := createTestGame(t, db, bob.ID, "Bob's Quest", 2500, 3)

	addReview(t, db, pricey.ID, bob.ID, 9)
	if err := db.Actions().AddWishlist(ctx, cheap.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.Actions().AddOwned(ctx, pricey.ID, bob.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		q    model.GameQuery
		want []int64
	}{
		{"text in title", model.GameQuery{Q: "racer"}, []int64{pricey.ID}},
		{"text in description", model.GameQuery{Q: "about Bob"}, []int64{bobs.ID}},
		{"wildcards are literal", model.GameQuery{Q: "%"}, []int64{}},
		{"max price inclusive", model.GameQuery{MaxPrice: ptr(int64(2500))}, []int64{cheap.ID, bobs.ID}},
		{"platform any-of", model.GameQuery{PlatformIDs: []int64{3}}, []int64{pricey.ID, bobs.ID}},
		{"creator", model.GameQuery{CreatorID: ptr(bob.ID)}, []int64{bobs.ID}},
		{"reviewer", model.GameQuery{ReviewerID: ptr(bob.ID)}, []int64{pricey.ID}},
		{"wishlisted by", model.GameQuery{WishlistedByUserID: bob.ID}, []int64{cheap.ID}},
		{"owned by", model.GameQuery{OwnedByUserID: bob.ID}, []int64{pricey.ID}},
		{"owned and wishlisted", model.GameQuery{OwnedByUserID: bob.ID, WishlistedByUserID: bob.ID}, []int64{}},
		{"genre", model.GameQuery{GenreIDs: []int64{2}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchIDs(t, db, tt.q)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestSearch_PlatformFilterKeepsAllPlatforms(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "p", "P")
	g := createTestGame(t, db, u.ID, "Multi", 0, 1, 4, 5)

	games, err := db.Games().Search(context.Background(), model.GameQuery{PlatformIDs: []int64{4}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(games) != 1 || games[0].GameID != g.ID {
		t.Fatalf("Search() = %+v, want only game %d", games, g.ID)
	}
	if !slices.Equal(games[0].PlatformIDs, []int64{1, 4, 5}) {
		t.Errorf("PlatformIDs = %v, want [1 4 5]", games[0].PlatformIDs)
	}
}

func TestSearch_Sorting(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "sorter", "S")
	r := createTestUser(t, db, "rater", "R")

	b := createTestGame(t, db, u.ID, "Banana", 300)
	a := createTestGame(t, db, u.ID, "Apple", 200)
	c := createTestGame(t, db, u.ID, "Cherry", 100)
	addReview(t, db, a.ID, r.ID, 9)
	addReview(t, db, c.ID, r.ID, 4)

	tests := []struct {
		sort model.SortBy
		want []int64
	}{
		{model.SortAlphabeticalAsc, []int64{a.ID, b.ID, c.ID}},
		{model.SortAlphabeticalDesc, []int64{c.ID, b.ID, a.ID}},
		{model.SortPriceAsc, []int64{c.ID, a.ID, b.ID}},
		{model.SortPriceDesc, []int64{b.ID, a.ID, c.ID}},
		{model.SortCreatedAsc, []int64{b.ID, a.ID, c.ID}},
		{model.SortCreatedDesc, []int64{c.ID, a.ID, b.ID}},
		{model.SortRatingAsc, []int64{b.ID, c.ID, a.ID}},
		{model.SortRatingDesc, []int64{a.ID, c.ID, b.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := searchIDs(t, db, model.GameQuery{SortBy: tt.sort})
			if !slices.Equal(got, tt.want) {
				t.Errorf("sort %s = %v, want %v", tt.sort, got, tt.want)
			}
		})
	}
}

// =========================================================================
// CRUD
// =========================================================================

func TestGameCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "c", "C")
	g := createTestGame(t, db, u.ID, "Created", 1999, 2, 1)

	found, err := db.Games().GetByID(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "Created" || found.Price != 1999 || found.CreatorID != u.ID {
		t.Errorf("GetByID() = %+v", found)
	}
	if !slices.Equal(found.PlatformIDs, []int64{1, 2}) {
		t.Errorf("PlatformIDs = %v, want [1 2]", found.PlatformIDs)
	}
	if found.CreationDate.IsZero() {
		t.Error("CreationDate not persisted")
	}
}

func TestGameCreate_DuplicateTitle(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "d", "D")
	createTestGame(t, db, u.ID, "Same", 0)

	err := db.Games().Create(context.Background(), &model.Game{
		Title: "Same", Description: "x", GenreID: 1, CreatorID: u.ID, PlatformIDs: []int64{1},
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Create() error = %v, want ErrForbidden", err)
	}
}

func TestGameGetDetail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "o", "O")
	fan := createTestUser(t, db, "f", "F")
	buyer := createTestUser(t, db, "b", "B")
	g := createTestGame(t, db, owner.ID, "Detailed", 50, 3, 1)

	_ = db.Actions().AddWishlist(ctx, g.ID, fan.ID)
	_ = db.Actions().AddOwned(ctx, g.ID, buyer.ID)
	addReview(t, db, g.ID, buyer.ID, 7)

	d, err := db.Games().GetDetail(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}
	if d.Description != "about Detailed" || d.Rating != 7 || d.NumberOfOwners != 1 || d.NumberOfWishlists != 1 {
		t.Errorf("GetDetail() = %+v", d)
	}
	if !slices.Equal(d.PlatformIDs, []int64{1, 3}) {
		t.Errorf("PlatformIDs = %v, want [1 3]", d.PlatformIDs)
	}

	if _, err := db.Games().GetDetail(ctx, 9999); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetDetail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGameUpdateAndPlatforms(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "e", "E")
	g := createTestGame(t, db, u.ID, "Before", 10, 1, 2)
	games := db.Games()

	if err := games.Update(ctx, g.ID, model.GamePatch{Title: ptr("After"), Price: ptr(int64(20))}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := games.AddPlatforms(ctx, g.ID, []int64{3}); err != nil {
		t.Fatalf("AddPlatforms() error = %v", err)
	}
	if err := games.RemovePlatforms(ctx, g.ID, []int64{1}); err != nil {
		t.Fatalf("RemovePlatforms() error = %v", err)
	}

	found, _ := games.GetByID(ctx, g.ID)
	if found.Title != "After" || found.Price != 20 || found.Description != "about Before" {
		t.Errorf("after Update() got %+v", found)
	}
	if !slices.Equal(found.PlatformIDs, []int64{2, 3}) {
		t.Errorf("PlatformIDs = %v, want [2 3]", found.PlatformIDs)
	}

	if err := games.Update(ctx, 9999, model.GamePatch{Price: ptr(int64(1))}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGameDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "del", "D")
	other := createTestUser(t, db, "oth", "O")
	g := createTestGame(t, db, u.ID, "Doomed", 0, 1, 2)
	_ = db.Actions().AddWishlist(ctx, g.ID, other.ID)

	if err := db.Games().Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Games().GetByID(ctx, g.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.Games().Delete(ctx, g.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestGameTitleInUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "t", "T")
	g := createTestGame(t, db, u.ID, "Taken", 0)

	if inUse, _ := db.Games().TitleInUse(ctx, "Taken", 0); !inUse {
		t.Error("TitleInUse(Taken, 0) = false, want true")
	}
	if inUse, _ := db.Games().TitleInUse(ctx, "Taken", g.ID); inUse {
		t.Error("TitleInUse(Taken, own id) = true, want false")
	}
}

func TestMissingReferenceIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	missing, err := db.Games().MissingGenres(ctx, []int64{1, 500, 2, 501})
	if err != nil {
		t.Fatalf("MissingGenres() error = %v", err)
	}
	if !slices.Equal(missing, []int64{500, 501}) {
		t.Errorf("MissingGenres() = %v, want [500 501]", missing)
	}

	missing, err = db.Games().MissingPlatforms(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("MissingPlatforms() error = %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("MissingPlatforms() = %v, want none", missing)
	}
}
