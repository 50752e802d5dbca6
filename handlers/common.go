package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"caballos/db"
	"caballos/gallery"
	"caballos/logging"
	"caballos/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined errors
	OKResponse          = Response{}
	BadIDResponse       = Response{"invalid id"}
	NotFoundResponse    = Response{"not found"}
	ForbiddenResponse   = Response{"access denied"}
	InternalResponse    = Response{"something went wrong, please try again later"}
	RateLimitedResponse = Response{"too many uploads, please wait a minute"}
)

// abortWith maps domain errors to status codes. Unknown errors are logged and
// answered with a generic message.
func abortWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gallery.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, gallery.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, gallery.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gallery.ErrConflict), errors.Is(err, models.ErrEmailTaken):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logging.L.Errorw("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		c.AbortWithStatusJSON(status, InternalResponse)
		return
	}
	c.AbortWithStatusJSON(status, Response{err.Error()})
}

func dbFor(c *gin.Context) *gorm.DB {
	return db.Instance.WithContext(c.Request.Context())
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{err.Error()})
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, BadIDResponse)
		return 0, false
	}
	return id, true
}

func bindPage(c *gin.Context) models.Page {
	page := models.Page{}
	_ = c.ShouldBindQuery(&page)
	page.Normalize()
	return page
}

func queryUint(c *gin.Context, name string) uint64 {
	v, _ := strconv.ParseUint(c.Query(name), 10, 64)
	return v
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	return v, err == nil
}

func formBool(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.PostForm(name))
	return b || c.PostForm(name) == "on"
}

// canModerate is true for the author or a caller with the capability
func canModerate(user *models.User, authorID uint64, required models.Capability) bool {
	return user != nil && user.ID != 0 && (user.ID == authorID || user.Can(required))
}
