package processing

import (
	"bytes"
	"context"

	"caballos/db"
	"caballos/logging"
	"caballos/models"
	"caballos/storage"
	"caballos/utils"
)

// dimensions fills in width and height of images uploaded without them
type dimensions struct{}

func (d *dimensions) getName() string {
	return "dimensions"
}

func (d *dimensions) shouldHandle(media *models.MediaFile) bool {
	return media.IsImage() && (media.Width == 0 || media.Height == 0)
}

func (d *dimensions) process(ctx context.Context, media *models.MediaFile, store storage.StorageAPI) int {
	buf := bytes.Buffer{}
	if _, err := store.Load(ctx, media.Path, &buf); err != nil {
		logging.L.Warnw("dimensions: cannot load object", "media", media.ID, "error", err)
		return FailedStorage
	}
	width, height, err := utils.ImageSize(&buf)
	if err != nil {
		logging.L.Warnw("dimensions: cannot decode header", "media", media.ID, "error", err)
		return Failed
	}
	err = db.Instance.WithContext(ctx).Model(media).UpdateColumns(map[string]any{"width": width, "height": height}).Error
	if err != nil {
		return FailedDB
	}
	media.Width, media.Height = width, height
	return Done
}
