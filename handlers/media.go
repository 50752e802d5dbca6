package handlers

import (
	"net/http"
	"strings"
	"time"

	"caballos/auth"
	"caballos/gallery"
	"caballos/models"
	"caballos/storage"

	"github.com/gin-gonic/gin"
)

type MediaURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

func MediaList(c *gin.Context) {
	filter := gallery.MediaFilter{}
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	result, err := gallery.ListMedia(c.Request.Context(), auth.CurrentUser(c), filter, bindPage(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	infos := models.PageResult[*gallery.MediaInfo]{Page: result.Page, PerPage: result.PerPage, Total: result.Total, Items: []*gallery.MediaInfo{}}
	for i := range result.Items {
		info, err := gallery.Describe(c.Request.Context(), storage.GetDefaultStorage(), &result.Items[i])
		if err != nil {
			abortWith(c, err)
			return
		}
		infos.Items = append(infos.Items, info)
	}
	c.JSON(http.StatusOK, infos)
}

func MediaGet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := gallery.GetMedia(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	info, err := gallery.Describe(c.Request.Context(), storage.GetDefaultStorage(), &m)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": m, "urls": info})
}

func MediaURL(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	thumb := c.Query("thumb") == "1" || c.Query("thumb") == "true"
	url, expiresAt, err := gallery.MediaURL(c.Request.Context(), storage.GetDefaultStorage(), auth.CurrentUser(c), id, thumb)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, MediaURLResponse{URL: url, ExpiresAt: expiresAt})
}

func MediaUpdate(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := gallery.MediaUpdate{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := gallery.UpdateMedia(c.Request.Context(), user, id, req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func MediaDelete(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := gallery.DeleteMedia(c.Request.Context(), storage.GetDefaultStorage(), user, id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

// FilesServe serves stored objects. Private ones need a valid signature or a
// signed in viewer allowed to see them.
func FilesServe(c *gin.Context) {
	objectPath := strings.TrimPrefix(c.Param("path"), "/")
	if objectPath == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	m := models.MediaFile{}
	err := dbFor(c).Where("path = ? OR thumb_path = ?", objectPath, objectPath).Limit(1).Find(&m).Error
	if err != nil {
		abortWith(c, err)
		return
	}
	if m.ID == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	if !m.IsPublic && !storage.VerifySignature(objectPath, c.Query("expires"), c.Query("sig"), time.Now()) &&
		!m.VisibleTo(auth.CurrentUser(c)) {
		c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
		return
	}
	if m.IsPublic {
		c.Header("cache-control", "public, max-age=86400")
	} else {
		c.Header("cache-control", "private, max-age=3600")
	}
	storage.GetDefaultStorage().Serve(objectPath, c.Request, c.Writer)
}
