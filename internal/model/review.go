package model

import "time"

// Review is one element of GET /games/{id}/reviews. Review is empty when
// the reviewer left a rating only.
type Review struct {
	ReviewerID        int64     `json:"reviewerId"`
	Rating            int       `json:"rating"`
	Review            string    `json:"review,omitempty"`
	ReviewerFirstName string    `json:"reviewerFirstName"`
	ReviewerLastName  string    `json:"reviewerLastName"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewReview is the input of a review insert.
type NewReview struct {
	GameID int64
	UserID int64
	Rating int
	Review string
}
