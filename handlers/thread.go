package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"caballos/models"
	"caballos/revalidate"
	"caballos/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ThreadCreateRequest struct {
	Category string `json:"category" binding:"required"`
	Title    string `json:"title" binding:"required,max=200"`
	Body     string `json:"body" binding:"required"`
}

type ReplyRequest struct {
	Body string `json:"body" binding:"required"`
}

type ThreadModerationRequest struct {
	Pinned *bool `json:"pinned"`
	Locked *bool `json:"locked"`
}

func ThreadList(c *gin.Context) {
	query := dbFor(c).Model(&models.Thread{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	query = query.Order("pinned DESC, last_reply_at DESC, id DESC")
	result, err := models.Paginate[models.Thread](query, bindPage(c), "Author")
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func ThreadCreate(c *gin.Context, user *models.User) {
	req := ThreadCreateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !models.ValidThreadCategory(req.Category) {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{"unknown category"})
		return
	}
	title := strings.TrimSpace(req.Title)
	thread := models.Thread{
		AuthorID:    user.ID,
		Category:    req.Category,
		Title:       title,
		Slug:        utils.Slugify(title),
		Body:        req.Body,
		LastReplyAt: time.Now().Unix(),
	}
	if err := dbFor(c).Create(&thread).Error; err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.ThreadPaths(thread.ID), revalidate.ProfilePaths(user.ID))...)
	c.JSON(http.StatusCreated, thread)
}

func loadThread(c *gin.Context) (thread models.Thread, ok bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := dbFor(c).Preload("Author").First(&thread, id).Error
	if err != nil {
		abortWith(c, err)
		return thread, false
	}
	return thread, true
}

func ThreadGet(c *gin.Context) {
	thread, ok := loadThread(c)
	if !ok {
		return
	}
	replies, err := models.Paginate[models.Reply](
		dbFor(c).Model(&models.Reply{}).Where("thread_id = ?", thread.ID).Order("created_at, id"),
		bindPage(c), "Author")
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread, "replies": replies})
}

func ThreadReply(c *gin.Context, user *models.User) {
	thread, ok := loadThread(c)
	if !ok {
		return
	}
	if thread.Locked && !user.Can(models.CapModerateContent) {
		c.AbortWithStatusJSON(http.StatusForbidden, Response{"the thread is locked"})
		return
	}
	req := ReplyRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reply := models.Reply{ThreadID: thread.ID, AuthorID: user.ID, Body: req.Body}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&thread).UpdateColumns(map[string]any{
			"reply_count":   gorm.Expr("reply_count + 1"),
			"last_reply_at": reply.CreatedAt,
		}).Error
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.ThreadPaths(thread.ID)...)
	c.JSON(http.StatusCreated, reply)
}

func ThreadDelete(c *gin.Context, user *models.User) {
	thread, ok := loadThread(c)
	if !ok {
		return
	}
	if !canModerate(user, thread.AuthorID, models.CapModerateContent) {
		c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
		return
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := deleteThread(tx, thread.ID); err != nil {
			return err
		}
		if user.ID == thread.AuthorID {
			return nil
		}
		return models.LogAdminAction(tx, user.ID, models.ActionContentRemove, models.TargetThread, thread.ID, gin.H{"title": thread.Title})
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.ThreadPaths(thread.ID), revalidate.ProfilePaths(thread.AuthorID))...)
	c.JSON(http.StatusOK, OKResponse)
}

func deleteThread(tx *gorm.DB, id uint64) error {
	if err := tx.Where("thread_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
		return err
	}
	result := tx.Delete(&models.Thread{}, id)
	if result.Error == nil && result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}

func deleteReply(tx *gorm.DB, id uint64) (threadID uint64, err error) {
	reply := models.Reply{}
	if err = tx.First(&reply, id).Error; err != nil {
		return
	}
	if err = tx.Delete(&reply).Error; err != nil {
		return
	}
	err = tx.Model(&models.Thread{ID: reply.ThreadID}).
		UpdateColumn("reply_count", gorm.Expr("CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END")).Error
	return reply.ThreadID, err
}

func ThreadModerate(c *gin.Context, user *models.User) {
	thread, ok := loadThread(c)
	if !ok {
		return
	}
	req := ThreadModerationRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	changes := map[string]any{}
	if req.Pinned != nil {
		changes["pinned"] = *req.Pinned
	}
	if req.Locked != nil {
		changes["locked"] = *req.Locked
	}
	if len(changes) == 0 {
		badRequest(c, errors.New("nothing to change"))
		return
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&thread).UpdateColumns(changes).Error; err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionThreadModerate, models.TargetThread, thread.ID, changes)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.ThreadPaths(thread.ID)...)
	c.JSON(http.StatusOK, gin.H{"pinned": pick(req.Pinned, thread.Pinned), "locked": pick(req.Locked, thread.Locked)})
}

func pick(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
