package gallery

import (
	"context"
	"time"

	"caballos/db"
	"caballos/logging"
	"caballos/metrics"
	"caballos/models"
	"caballos/storage"

	"gorm.io/gorm"
)

// SweepOrphans deletes files uploaded for an album that was never created,
// once they are older than olderThan. Returns the number of deleted files.
func SweepOrphans(ctx context.Context, store storage.StorageAPI, olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan).Unix()
	orphans := []models.MediaFile{}
	err := db.Instance.WithContext(ctx).
		Where("pending_album = ? AND created_at < ?", true, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM album_media WHERE album_media.media_id = media_files.id)").
		Limit(500).
		Find(&orphans).Error
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := range orphans {
		m := &orphans[i]
		err := db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return deleteMediaRows(tx, m.ID)
		})
		if err != nil {
			logging.L.Errorw("orphan sweep failed", "media", m.ID, "error", err)
			continue
		}
		deleteObjects(ctx, store, m)
		deleted++
	}
	if deleted > 0 {
		metrics.OrphansSwept.Add(float64(deleted))
		logging.L.Infow("orphaned uploads deleted", "count", deleted)
	}
	return deleted, nil
}

// StartSweeper runs SweepOrphans every interval until ctx is done
func StartSweeper(ctx context.Context, store storage.StorageAPI, olderThan time.Duration) {
	if olderThan <= 0 {
		return
	}
	interval := olderThan / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := SweepOrphans(ctx, store, olderThan, now); err != nil {
					logging.L.Errorw("orphan sweep", "error", err)
				}
			}
		}
	}()
}
