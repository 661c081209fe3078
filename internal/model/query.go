package model

import "slices"

// SortBy is one of the eight orderings a game search accepts.
type SortBy string

const (
	SortAlphabeticalAsc  SortBy = "ALPHABETICAL_ASC"
	SortAlphabeticalDesc SortBy = "ALPHABETICAL_DESC"
	SortPriceAsc         SortBy = "PRICE_ASC"
	SortPriceDesc        SortBy = "PRICE_DESC"
	SortCreatedAsc       SortBy = "CREATED_ASC"
	SortCreatedDesc      SortBy = "CREATED_DESC"
	SortRatingAsc        SortBy = "RATING_ASC"
	SortRatingDesc       SortBy = "RATING_DESC"
)

// DefaultSort applies when the request has no sortBy.
const DefaultSort = SortCreatedAsc

var sortOrders = []SortBy{
	SortAlphabeticalAsc, SortAlphabeticalDesc,
	SortPriceAsc, SortPriceDesc,
	SortCreatedAsc, SortCreatedDesc,
	SortRatingAsc, SortRatingDesc,
}

// SortOrders lists every accepted SortBy. Storage backends map each one
// to their own ordering.
func SortOrders() []SortBy {
	return slices.Clone(sortOrders)
}

// ParseSortBy maps a query-string value to a SortBy. An empty string gives
// DefaultSort; anything unrecognised reports false.
func ParseSortBy(s string) (SortBy, bool) {
	if s == "" {
		return DefaultSort, true
	}
	sb := SortBy(s)
	return sb, slices.Contains(sortOrders, sb)
}

// GameQuery is a parsed GET /games request.
//
// Zero values mean "no filter": an empty slice, a nil pointer, or a zero
// user id. StartIndex and Count are applied after the database query so
// that the total count reflects the whole filtered set; a Count of 0
// means "everything from StartIndex on".
type GameQuery struct {
	Q                  string
	GenreIDs           []int64
	PlatformIDs        []int64
	MaxPrice           *int64
	CreatorID          *int64
	ReviewerID         *int64
	SortBy             SortBy
	OwnedByUserID      int64
	WishlistedByUserID int64

	StartIndex int
	Count      int
}
