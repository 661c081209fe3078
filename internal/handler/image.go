package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/service"
)

// ImageHandler serves the raw image endpoints:
//
//	GET/PUT/DELETE /users/{id}/image
//	GET/PUT        /games/{id}/image
//
// PUT takes the image bytes as the body and the type from Content-Type.
type ImageHandler struct {
	images   *service.ImageService
	maxBytes int64
	logger   *slog.Logger
}

func NewImageHandler(images *service.ImageService, maxBytes int64, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, maxBytes: maxBytes, logger: logger}
}

type (
	getImageFunc func(ctx context.Context, id int64) (*service.Image, error)
	setImageFunc func(ctx context.Context, actor *model.User, id int64, contentType string, data []byte) (bool, error)
)

func (h *ImageHandler) get(fn getImageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		img, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img.Data); err != nil {
			h.logger.Warn("writing image response", slog.String("error", err.Error()))
		}
	}
}

// put answers 201 when the owner had no image before and 200 when one
// was replaced.
func (h *ImageHandler) put(fn setImageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
		if err != nil {
			var sizeErr *http.MaxBytesError
			if errors.As(err, &sizeErr) {
				writeError(w, h.logger, apperror.ValidationFailed("body", "Bad Request: image is too large"))
				return
			}
			writeError(w, h.logger, err)
			return
		}

		created, err := fn(r.Context(), actor(r), id, r.Header.Get("Content-Type"), data)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if created {
			writeStatus(w, http.StatusCreated)
			return
		}
		writeStatus(w, http.StatusOK)
	}
}

func (h *ImageHandler) HandleGetUserImage() http.HandlerFunc { return h.get(h.images.GetUserImage) }
func (h *ImageHandler) HandlePutUserImage() http.HandlerFunc { return h.put(h.images.SetUserImage) }
func (h *ImageHandler) HandleGetGameImage() http.HandlerFunc { return h.get(h.images.GetGameImage) }
func (h *ImageHandler) HandlePutGameImage() http.HandlerFunc { return h.put(h.images.SetGameImage) }

// HTTP: DELETE /users/{id}/image
func (h *ImageHandler) HandleDeleteUserImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.images.DeleteUserImage(r.Context(), actor(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeStatus(w, http.StatusOK)
}
