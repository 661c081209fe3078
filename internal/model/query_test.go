package model

import "testing"

func TestParseSortBy(t *testing.T) {
	tests := []struct {
		in     string
		want   SortBy
		wantOK bool
	}{
		{"", DefaultSort, true},
		{"PRICE_DESC", SortPriceDesc, true},
		{"RATING_ASC", SortRatingAsc, true},
		{"price_desc", "", false},
		{"RANDOM", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSortBy(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ParseSortBy(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	for _, sb := range SortOrders() {
		if _, ok := ParseSortBy(string(sb)); !ok {
			t.Errorf("ParseSortBy(%q) rejected a listed ordering", sb)
		}
	}
}
