package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
	"github.com/sakif/game-marketplace/internal/repository"
	"github.com/sakif/game-marketplace/internal/storage"
)

// Image is a stored image ready to be written to a response.
type Image struct {
	Data        []byte
	ContentType string
}

// imageSlot describes one kind of image owner (users, games) so the
// get/set/delete flow is written once.
type imageSlot struct {
	kind      string
	noImage   string
	forbidden string
	// owner loads the row and returns who may change its image and the
	// current filename.
	owner func(ctx context.Context, store repository.Store, id int64) (ownerID int64, filename string, err error)
	set   func(ctx context.Context, store repository.Store, id int64, filename string) error
}

var userImages = imageSlot{
	kind:      "user",
	noImage:   "User has no image",
	forbidden: "Can not change another user's profile photo",
	owner: func(ctx context.Context, store repository.Store, id int64) (int64, string, error) {
		u, err := store.Users().GetByID(ctx, id)
		if err != nil {
			return 0, "", err
		}
		return u.ID, u.ImageFilename, nil
	},
	set: func(ctx context.Context, store repository.Store, id int64, filename string) error {
		return store.Users().SetImage(ctx, id, filename)
	},
}

var gameImages = imageSlot{
	kind:      "game",
	noImage:   "Game has no image",
	forbidden: "Only the creator of a game can change the hero image",
	owner: func(ctx context.Context, store repository.Store, id int64) (int64, string, error) {
		g, err := store.Games().GetByID(ctx, id)
		if err != nil {
			return 0, "", err
		}
		return g.CreatorID, g.ImageFilename, nil
	},
	set: func(ctx context.Context, store repository.Store, id int64, filename string) error {
		return store.Games().SetImage(ctx, id, filename)
	},
}

// ImageService serves and replaces user profile photos and game cover
// images.
type ImageService struct {
	store  repository.Store
	images *storage.ImageStore
	logger *slog.Logger
}

func NewImageService(store repository.Store, images *storage.ImageStore, logger *slog.Logger) *ImageService {
	return &ImageService{store: store, images: images, logger: logger}
}

func (s *ImageService) GetUserImage(ctx context.Context, userID int64) (*Image, error) {
	return s.get(ctx, userImages, userID)
}

// SetUserImage stores data as the user's photo. created reports whether
// the user had no photo before.
func (s *ImageService) SetUserImage(ctx context.Context, actor *model.User, userID int64, contentType string, data []byte) (created bool, err error) {
	return s.set(ctx, userImages, actor, userID, contentType, data)
}

func (s *ImageService) DeleteUserImage(ctx context.Context, actor *model.User, userID int64) error {
	return s.remove(ctx, userImages, actor, userID)
}

func (s *ImageService) GetGameImage(ctx context.Context, gameID int64) (*Image, error) {
	return s.get(ctx, gameImages, gameID)
}

// SetGameImage stores data as the game's cover. Only the creator may set
// it.
func (s *ImageService) SetGameImage(ctx context.Context, actor *model.User, gameID int64, contentType string, data []byte) (created bool, err error) {
	return s.set(ctx, gameImages, actor, gameID, contentType, data)
}

func (s *ImageService) get(ctx context.Context, slot imageSlot, id int64) (*Image, error) {
	_, filename, err := slot.owner(ctx, s.store, id)
	if err != nil {
		return nil, fmt.Errorf("service/image: get %s image: %w", slot.kind, err)
	}
	if filename == "" {
		return nil, apperror.NotFoundMessage(slot.noImage)
	}

	data, err := s.images.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("service/image: get %s image: %w", slot.kind, err)
	}
	return &Image{Data: data, ContentType: storage.ContentTypeFor(filename)}, nil
}

// set links a new file to the row and writes it inside one transaction,
// so a failed write leaves the old image in place. The previous file is
// removed only after commit.
func (s *ImageService) set(
	ctx context.Context,
	slot imageSlot,
	actor *model.User,
	id int64,
	contentType string,
	data []byte,
) (bool, error) {
	if actor == nil {
		return false, apperror.Unauthorized("Unauthorized")
	}

	var (
		previous string
		filename string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ownerID, current, err := slot.owner(ctx, tx, id)
		if err != nil {
			return err
		}
		if ownerID != actor.ID {
			return apperror.Forbidden(slot.forbidden)
		}

		ext, ok := storage.ExtensionFor(contentType)
		if !ok {
			return apperror.ValidationFailed("Content-Type", "Invalid image supplied (possibly incorrect file type)")
		}
		if len(data) == 0 {
			return apperror.ValidationFailed("body", "No image supplied")
		}

		filename = storage.NewFilename(ext)
		if err := slot.set(ctx, tx, id, filename); err != nil {
			return err
		}
		if err := s.images.Save(filename, data); err != nil {
			return err
		}
		previous = current
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("service/image: set %s image: %w", slot.kind, err)
	}

	if previous != "" {
		s.discard(slot, id, previous)
	}

	s.logger.Info(slot.kind+" image set",
		slog.Int64("id", id),
		slog.String("file", filename),
	)
	return previous == "", nil
}

func (s *ImageService) remove(ctx context.Context, slot imageSlot, actor *model.User, id int64) error {
	if actor == nil {
		return apperror.Unauthorized("Unauthorized")
	}

	var previous string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ownerID, current, err := slot.owner(ctx, tx, id)
		if err != nil {
			return err
		}
		if ownerID != actor.ID {
			return apperror.Forbidden(slot.forbidden)
		}
		if current == "" {
			return apperror.NotFoundMessage(slot.noImage)
		}
		previous = current
		return slot.set(ctx, tx, id, "")
	})
	if err != nil {
		return fmt.Errorf("service/image: delete %s image: %w", slot.kind, err)
	}

	s.discard(slot, id, previous)
	s.logger.Info(slot.kind+" image deleted", slog.Int64("id", id))
	return nil
}

// discard removes a file that is no longer referenced. Failure leaves an
// orphan on disk, which is logged but not reported to the client.
func (s *ImageService) discard(slot imageSlot, id int64, filename string) {
	if err := s.images.Remove(filename); err != nil {
		s.logger.Warn("removing replaced image",
			slog.String("kind", slot.kind),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
	}
}
