package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/service"
)

// UserHandler serves /users: registration, sessions and profiles.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /users
// REQUEST BODY: {"email", "firstName", "lastName", "password"}
// RESPONSE: 201 {"userId": 1}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"userId": id})
}

// HandleLogin issues a session token.
//
// HTTP: POST /users/login
// RESPONSE: 200 {"userId": 1, "token": "..."}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLogout revokes the caller's token.
//
// HTTP: POST /users/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(r.Context(), actor(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// HandleView returns a profile; the email only to its owner.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.users.View(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate applies a partial profile edit.
//
// HTTP: PATCH /users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UpdateUserInput
	if err := decodeJSON(w, r, &in, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Update(r.Context(), actor(r), id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusOK)
}
