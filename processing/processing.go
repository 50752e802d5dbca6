// Package processing runs background tasks over uploaded media: it backfills
// thumbnails that could not be created during the upload and missing image
// dimensions. Every task is tried once per file.
package processing

import (
	"context"
	"sort"
	"time"

	"caballos/config"
	"caballos/db"
	"caballos/logging"
	"caballos/metrics"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"

	"gorm.io/gorm"
)

const (
	batchSize = 100
	// Uploads still being handled by a request are left alone
	settleTime = 30 * time.Second
)

type processingTask interface {
	getName() string
	shouldHandle(*models.MediaFile) bool
	process(context.Context, *models.MediaFile, storage.StorageAPI) int
}

var (
	tasks = map[string]processingTask{}
)

func registerTask(t processingTask) {
	tasks[t.getName()] = t
}

func init() {
	registerTask(&dimensions{})
	registerTask(&thumb{})
}

func taskNames() []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Init() error {
	return Migrate(db.Instance)
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&ProcessingTask{})
}

type pendingRow struct {
	ID       uint64
	Status   string
	RecordID *uint64
}

// ProcessPending runs every task that has not been tried yet on media files
// older than the settle time. Returns the number of files looked at.
func ProcessPending(ctx context.Context, store storage.StorageAPI, now time.Time) (int, error) {
	rows := []pendingRow{}
	// All files that don't have a processing_tasks record, OR
	// whose status has fewer tasks performed than the currently available ones
	err := db.Instance.WithContext(ctx).
		Table("media_files").
		Joins("LEFT JOIN processing_tasks ON (media_files.id = processing_tasks.media_id)").
		Select("media_files.id AS id, COALESCE(processing_tasks.status, '') AS status, processing_tasks.media_id AS record_id").
		Where("media_files.size > 0 AND media_files.created_at < ? AND "+
			"(processing_tasks.status IS NULL OR processing_tasks.status = '' OR "+
			"  LENGTH(processing_tasks.status)-LENGTH(REPLACE(processing_tasks.status, ',', ''))+1 < ?)",
			now.Add(-settleTime).Unix(), len(tasks)).
		Order("media_files.id").
		Limit(batchSize).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	changed := false
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		media := models.MediaFile{}
		if err = db.Instance.WithContext(ctx).First(&media, row.ID).Error; err != nil {
			logging.L.Warnw("processing: load media", "media", row.ID, "error", err)
			continue
		}
		current := ProcessingTask{
			MediaID: media.ID,
			Status:  row.Status,
		}
		statusMap := current.statusToMap()
		for _, taskName := range taskNames() {
			if _, ok := statusMap[taskName]; ok {
				// Just one try for each task
				continue
			}
			task := tasks[taskName]
			if !task.shouldHandle(&media) {
				statusMap[taskName] = Skipped
				continue
			}
			start := time.Now()
			statusMap[taskName] = task.process(ctx, &media, store)
			if statusMap[taskName] == Done {
				changed = true
			}
			metrics.ProcessingTasks.WithLabelValues(taskName, statusName(statusMap[taskName])).Inc()
			logging.L.Infow("processing task", "task", taskName, "media", media.ID, "result", statusMap[taskName], "took", time.Since(start))
		}
		current.updateWith(statusMap)
		if row.RecordID == nil {
			// This is a new record
			err = db.Instance.WithContext(ctx).Create(&current).Error
		} else {
			// This is an update
			err = db.Instance.WithContext(ctx).Save(&current).Error
		}
		if err != nil {
			logging.L.Errorw("processing: save task status", "media", media.ID, "error", err)
		}
	}
	if changed {
		revalidate.Paths(revalidate.GalleryPath, revalidate.HomePath)
	}
	return len(rows), nil
}

// StartProcessing blocks until ctx is done, working through pending files every PROCESSING_EVERY
func StartProcessing(ctx context.Context, store storage.StorageAPI) {
	every := config.PROCESSING_EVERY
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := ProcessPending(ctx, store, time.Now())
		if err != nil {
			logging.L.Errorw("processing: select pending", "error", err)
		}
		// A full batch means there is probably more to do
		if n == batchSize && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
