package model

import "time"

// Game is a row of the games table plus its platform links.
type Game struct {
	ID            int64
	Title         string
	Description   string
	GenreID       int64
	Price         int64 // cents
	CreatorID     int64
	CreationDate  time.Time
	ImageFilename string // empty when no cover image
	PlatformIDs   []int64
}

// GameSummary is one element of a search result.
type GameSummary struct {
	GameID           int64     `json:"gameId"`
	Title            string    `json:"title"`
	GenreID          int64     `json:"genreId"`
	CreationDate     time.Time `json:"creationDate"`
	CreatorID        int64     `json:"creatorId"`
	Price            int64     `json:"price"`
	CreatorFirstName string    `json:"creatorFirstName"`
	CreatorLastName  string    `json:"creatorLastName"`
	Rating           float64   `json:"rating"`
	PlatformIDs      []int64   `json:"platformIds"`
}

// GameDetail is the body of GET /games/{id}.
type GameDetail struct {
	GameSummary
	Description       string `json:"description"`
	NumberOfOwners    int    `json:"numberOfOwners"`
	NumberOfWishlists int    `json:"numberOfWishlists"`
}

// GamePatch lists the game columns a PATCH may change. PlatformIDs, when
// non-nil, replaces the whole platform set.
type GamePatch struct {
	Title       *string
	Description *string
	GenreID     *int64
	Price       *int64
	PlatformIDs []int64
}

func (p GamePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.GenreID == nil &&
		p.Price == nil && p.PlatformIDs == nil
}

type Genre struct {
	ID   int64  `json:"genreId"`
	Name string `json:"name"`
}

type Platform struct {
	ID   int64  `json:"platformId"`
	Name string `json:"name"`
}

// SearchResult is the body of GET /games. Count is the number of matches
// before pagination.
type SearchResult struct {
	Games []GameSummary `json:"games"`
	Count int           `json:"count"`
}
