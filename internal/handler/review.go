package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// HTTP: GET /games/{id}/reviews
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	reviews, err := h.reviews.List(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandlePost records the caller's review.
//
// HTTP: POST /games/{id}/reviews
// REQUEST BODY: {"rating": 1-10, "review": "optional text"}
// RESPONSE: 201
func (h *ReviewHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.ReviewInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.reviews.Post(r.Context(), actor(r), id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusCreated)
}
