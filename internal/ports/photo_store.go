package ports

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

// PhotoStore persists device photos and hands back a URL to retrieve them.
type PhotoStore interface {
	// Save fails with model.ErrPhotoStore, or model.ErrUnsupportedPhoto when
	// the file has no accepted extension.
	Save(ctx context.Context, photo model.Photo, id model.DeviceID) (string, error)
}
