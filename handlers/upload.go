package handlers

import (
	"net/http"
	"strconv"
	"time"

	"caballos/config"
	"caballos/gallery"
	"caballos/metrics"
	"caballos/models"
	"caballos/storage"
	"caballos/utils"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
)

var uploadLimiters = cmap.New[*rate.Limiter]()

// allowUpload spends one token per file, the bucket holds a minute worth of files
func allowUpload(userID uint64, files int) bool {
	perMinute := config.UPLOAD_RATE_PER_MINUTE
	if perMinute <= 0 {
		return true
	}
	limiter := uploadLimiters.Upsert(strconv.FormatUint(userID, 10), nil, func(exist bool, valueInMap, _ *rate.Limiter) *rate.Limiter {
		if exist {
			return valueInMap
		}
		return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	})
	if files > perMinute {
		files = perMinute
	}
	return limiter.AllowN(time.Now(), files)
}

func submitOptions(c *gin.Context) gallery.SubmitOptions {
	return gallery.SubmitOptions{
		Category:           c.PostForm("category"),
		IsPublic:           formBool(c, "is_public"),
		Tags:               utils.SplitTags(c.PostForm("tags")),
		Description:        c.PostForm("description"),
		GenerateThumbnails: formBool(c, "generate_thumbnails"),
		Subpath:            c.PostForm("subpath"),
		CreateAlbum:        formBool(c, "create_album"),
		AlbumTitle:         c.PostForm("album_title"),
		AlbumDescription:   c.PostForm("album_description"),
		AlbumCategory:      c.PostForm("album_category"),
	}
}

func multipartCandidates(c *gin.Context) ([]gallery.Candidate, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{"no files"})
		return nil, false
	}
	return gallery.FromMultipart(files), true
}

// UploadValidate only runs the intake checks, nothing is stored
func UploadValidate(c *gin.Context, user *models.User) {
	candidates, ok := multipartCandidates(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": gallery.Intake(candidates, gallery.DefaultLimits())})
}

func UploadSubmit(c *gin.Context, user *models.User) {
	candidates, ok := multipartCandidates(c)
	if !ok {
		return
	}
	if !allowUpload(user.ID, len(candidates)) {
		metrics.RateLimited.Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitedResponse)
		return
	}
	result, err := gallery.Submit(c.Request.Context(), storage.GetDefaultStorage(), user, candidates, submitOptions(c), gallery.DefaultLimits())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
