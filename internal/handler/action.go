package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/service"
)

// ActionHandler serves the wishlist and owned toggles:
//
//	POST   /games/{id}/wishlist
//	DELETE /games/{id}/wishlist
//	POST   /games/{id}/owned
//	DELETE /games/{id}/owned
//
// All four answer 200 with no body.
type ActionHandler struct {
	actions *service.ActionService
	logger  *slog.Logger
}

func NewActionHandler(actions *service.ActionService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{actions: actions, logger: logger}
}

type actionFunc func(ctx context.Context, actor *model.User, gameID int64) error

func (h *ActionHandler) handle(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if err := fn(r.Context(), actor(r), id); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeStatus(w, http.StatusOK)
	}
}

func (h *ActionHandler) HandleWishlist() http.HandlerFunc   { return h.handle(h.actions.Wishlist) }
func (h *ActionHandler) HandleUnwishlist() http.HandlerFunc { return h.handle(h.actions.Unwishlist) }
func (h *ActionHandler) HandleOwn() http.HandlerFunc        { return h.handle(h.actions.Own) }
func (h *ActionHandler) HandleUnown() http.HandlerFunc      { return h.handle(h.actions.Unown) }
