package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/service"
)

// GameHandler serves the game catalogue under /games.
type GameHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

func NewGameHandler(games *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

// HandleSearch lists games.
//
// HTTP: GET /games?q=&genreIds=&platformIds=&price=&creatorId=&reviewerId=
//
//	&sortBy=&ownedByMe=&wishlistedByMe=&startIndex=&count=
//
// RESPONSE: 200 {"games": [...], "count": n}
func (h *GameHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	in, err := parseSearch(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.games.Search(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseSearch turns the query string into a SearchInput. Range checks are
// left to the service.
func parseSearch(r *http.Request) (service.SearchInput, error) {
	p := &queryParser{values: r.URL.Query()}
	in := service.SearchInput{
		Q:              p.values.Get("q"),
		StartIndex:     p.intParam("startIndex"),
		Count:          p.intParam("count"),
		GenreIDs:       p.int64ListParam("genreIds"),
		PlatformIDs:    p.int64ListParam("platformIds"),
		Price:          p.int64Param("price"),
		CreatorID:      p.int64Param("creatorId"),
		ReviewerID:     p.int64Param("reviewerId"),
		SortBy:         p.values.Get("sortBy"),
		OwnedByMe:      p.boolParam("ownedByMe"),
		WishlistedByMe: p.boolParam("wishlistedByMe"),
	}
	return in, p.err
}

// HTTP: GET /games/{id}
func (h *GameHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	game, err := h.games.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// HandleCreate adds a game owned by the caller.
//
// HTTP: POST /games
// RESPONSE: 201 {"gameId": 1}
func (h *GameHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGameInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.games.Create(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"gameId": id})
}

// HTTP: PATCH /games/{id}
func (h *GameHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.EditGameInput
	if err := decodeJSON(w, r, &in, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.games.Edit(r.Context(), actor(r), id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// HTTP: DELETE /games/{id}
func (h *GameHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.games.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// HTTP: GET /games/genres
func (h *GameHandler) HandleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.games.Genres(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

// HTTP: GET /games/platforms
func (h *GameHandler) HandlePlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.games.Platforms(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, platforms)
}
