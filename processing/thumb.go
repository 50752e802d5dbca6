package processing

import (
	"bytes"
	"context"

	"caballos/config"
	"caballos/db"
	"caballos/logging"
	"caballos/metrics"
	"caballos/models"
	"caballos/storage"
	"caballos/utils"
)

// thumb creates thumbnails requested at upload time that failed to be created then
type thumb struct{}

func (t *thumb) getName() string {
	return "thumb"
}

func (t *thumb) shouldHandle(media *models.MediaFile) bool {
	return media.ThumbRequested && media.ThumbPath == "" && media.IsImage()
}

func (t *thumb) process(ctx context.Context, media *models.MediaFile, store storage.StorageAPI) int {
	original := bytes.Buffer{}
	if _, err := store.Load(ctx, media.Path, &original); err != nil {
		logging.L.Warnw("thumb: cannot load object", "media", media.ID, "path", media.Path, "error", err)
		return FailedStorage
	}
	buf := bytes.Buffer{}
	converted, err := utils.CreateThumb(uint(config.THUMB_SIZE), config.MAX_IMAGE_PIXELS, &original, &buf)
	if err != nil {
		metrics.ThumbnailsCreated.WithLabelValues("error").Inc()
		logging.L.Warnw("thumb: cannot decode image", "media", media.ID, "error", err)
		return Failed
	}
	thumbPath := storage.ThumbPath(media.Category, media.OwnerID, media.Path)
	if _, err = store.Save(ctx, thumbPath, &buf, "image/jpeg"); err != nil {
		metrics.ThumbnailsCreated.WithLabelValues("error").Inc()
		logging.L.Warnw("thumb: cannot save", "media", media.ID, "path", thumbPath, "error", err)
		return FailedStorage
	}
	changes := map[string]any{"thumb_path": thumbPath}
	if media.Width == 0 || media.Height == 0 {
		changes["width"], changes["height"] = converted.OldX, converted.OldY
	}
	if err = db.Instance.WithContext(ctx).Model(media).UpdateColumns(changes).Error; err != nil {
		logging.L.Errorw("thumb: cannot update media", "media", media.ID, "error", err)
		// Revert
		store.Delete(context.WithoutCancel(ctx), thumbPath)
		return FailedDB
	}
	media.ThumbPath = thumbPath
	metrics.ThumbnailsCreated.WithLabelValues("ok").Inc()
	return Done
}
