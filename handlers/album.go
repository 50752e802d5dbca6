package handlers

import (
	"net/http"

	"caballos/auth"
	"caballos/gallery"
	"caballos/models"

	"github.com/gin-gonic/gin"
)

type AlbumCreateRequest struct {
	gallery.AlbumCreate
	MediaIDs []uint64 `json:"media_ids"`
}

type MediaIDsRequest struct {
	MediaIDs []uint64 `json:"media_ids" binding:"required,min=1"`
}

type ReorderRequest struct {
	Items []gallery.ReorderItem `json:"items" binding:"required,min=1,dive"`
}

func AlbumList(c *gin.Context) {
	filter := gallery.AlbumFilter{}
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	result, err := gallery.ListAlbums(c.Request.Context(), auth.CurrentUser(c), filter, bindPage(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func AlbumCreate(c *gin.Context, user *models.User) {
	req := AlbumCreateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	album, err := gallery.CreateAlbum(c.Request.Context(), user, req.AlbumCreate, req.MediaIDs)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

func AlbumGet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	album, err := gallery.GetAlbum(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func AlbumUpdate(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := gallery.AlbumUpdate{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	album, err := gallery.UpdateAlbum(c.Request.Context(), user, id, req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func AlbumDelete(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := gallery.DeleteAlbum(c.Request.Context(), user, id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func AlbumMediaList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	members, err := gallery.AlbumMembers(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": members})
}

func AlbumMediaAdd(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	// Non-owners get 403 whatever the body
	if err := gallery.AuthorizeMembers(c.Request.Context(), user, id); err != nil {
		abortWith(c, err)
		return
	}
	req := MediaIDsRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	added, err := gallery.AddMedia(c.Request.Context(), user, id, req.MediaIDs)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func AlbumMediaRemove(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := gallery.AuthorizeMembers(c.Request.Context(), user, id); err != nil {
		abortWith(c, err)
		return
	}
	req := MediaIDsRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	removed, err := gallery.RemoveMedia(c.Request.Context(), user, id, req.MediaIDs)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func AlbumMediaReorder(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := gallery.AuthorizeMembers(c.Request.Context(), user, id); err != nil {
		abortWith(c, err)
		return
	}
	req := ReorderRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := gallery.Reorder(c.Request.Context(), user, id, req.Items); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
