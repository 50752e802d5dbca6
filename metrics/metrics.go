package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Uploads counts submitted files by upload_status (completed, failed, rejected)
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caballos_uploads_total",
		Help: "Uploaded files by status",
	}, []string{"status"})

	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caballos_upload_bytes_total",
		Help: "Bytes written to object storage by uploads",
	})

	// AlbumMutations counts album changes by operation (create, update, delete, add, remove, reorder)
	AlbumMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caballos_album_mutations_total",
		Help: "Album mutations by operation",
	}, []string{"op"})

	RevalidatedPaths = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caballos_revalidated_paths_total",
		Help: "Page paths marked stale",
	})

	PageCacheDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caballos_page_cache_discarded_total",
		Help: "Rendered pages not cached because their path went stale or the cache was full",
	})

	OrphansSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caballos_orphans_swept_total",
		Help: "Pending uploads deleted by the orphan sweep",
	})

	ThumbnailsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caballos_thumbnails_total",
		Help: "Thumbnail generation attempts by result",
	}, []string{"result"})

	// ProcessingTasks counts background media tasks by task name and result (done, failed, skipped)
	ProcessingTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caballos_processing_tasks_total",
		Help: "Background media processing tasks by result",
	}, []string{"task", "result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caballos_upload_rate_limited_total",
		Help: "Upload requests refused by the per-user rate limit",
	})
)

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
