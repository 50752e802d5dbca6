package handlers

import (
	"errors"
	"net/http"
	"strings"

	"caballos/auth"
	"caballos/gallery"
	"caballos/models"
	"caballos/revalidate"
	"caballos/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HorseCreateRequest struct {
	Name         string  `json:"name" binding:"required,max=150"`
	Breed        string  `json:"breed" binding:"max=100"`
	BirthYear    int     `json:"birth_year" binding:"omitempty,min=1900,max=2100"`
	Description  string  `json:"description"`
	CoverMediaID *uint64 `json:"cover_media_id"`
	AlbumID      *uint64 `json:"album_id"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required,max=5000"`
}

func HorseList(c *gin.Context) {
	query := dbFor(c).Model(&models.Horse{})
	if breed := c.Query("breed"); breed != "" {
		query = query.Where("breed = ?", breed)
	}
	if c.Query("sort") == "recent" {
		query = query.Order("created_at DESC, id DESC")
	} else {
		query = query.Order("vote_count DESC, id DESC")
	}
	result, err := models.Paginate[models.Horse](query, bindPage(c), "CoverMedia", "Owner")
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// uniqueSlug appends a random suffix while the slug is taken
func uniqueSlug(tx *gorm.DB, model any, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "caballo"
	}
	slug := base
	for i := 0; i < 5; i++ {
		var count int64
		if err := tx.Model(model).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = base + "-" + utils.RandSuffix()
	}
	return "", errors.New("cannot find a free slug")
}

// checkMediaRefs makes sure the cover and the album can be shown by the caller
func checkMediaRefs(c *gin.Context, user *models.User, coverID, albumID *uint64) bool {
	if coverID != nil && *coverID != 0 {
		if _, err := gallery.GetMedia(c.Request.Context(), user, *coverID); err != nil {
			abortWith(c, err)
			return false
		}
	}
	if albumID != nil && *albumID != 0 {
		if _, err := gallery.GetAlbum(c.Request.Context(), user, *albumID); err != nil {
			abortWith(c, err)
			return false
		}
	}
	return true
}

func nonZero(id *uint64) *uint64 {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func HorseCreate(c *gin.Context, user *models.User) {
	req := HorseCreateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !checkMediaRefs(c, user, req.CoverMediaID, req.AlbumID) {
		return
	}
	slug, err := uniqueSlug(dbFor(c), &models.Horse{}, req.Name)
	if err != nil {
		abortWith(c, err)
		return
	}
	horse := models.Horse{
		OwnerID:      user.ID,
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug,
		Breed:        strings.TrimSpace(req.Breed),
		BirthYear:    req.BirthYear,
		Description:  req.Description,
		CoverMediaID: nonZero(req.CoverMediaID),
		AlbumID:      nonZero(req.AlbumID),
	}
	if err = dbFor(c).Create(&horse).Error; err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.HorsePaths(horse.Slug), revalidate.ProfilePaths(user.ID))...)
	c.JSON(http.StatusCreated, horse)
}

func HorseGet(c *gin.Context) {
	horse := models.Horse{}
	err := dbFor(c).Preload("Owner").Preload("CoverMedia").Where("slug = ?", c.Param("id")).First(&horse).Error
	if err != nil {
		abortWith(c, err)
		return
	}
	comments, err := models.Paginate[models.HorseComment](
		dbFor(c).Model(&models.HorseComment{}).Where("horse_id = ?", horse.ID).Order("created_at DESC, id DESC"),
		bindPage(c), "Author")
	if err != nil {
		abortWith(c, err)
		return
	}
	voted := false
	if user := auth.CurrentUser(c); user != nil {
		var count int64
		dbFor(c).Model(&models.HorseVote{}).Where("horse_id = ? AND user_id = ?", horse.ID, user.ID).Count(&count)
		voted = count > 0
	}
	c.JSON(http.StatusOK, gin.H{"horse": horse, "comments": comments, "voted": voted})
}

func loadHorse(c *gin.Context) (horse models.Horse, ok bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := dbFor(c).First(&horse, id).Error; err != nil {
		abortWith(c, err)
		return horse, false
	}
	return horse, true
}

// HorseVote toggles the caller's vote
func HorseVote(c *gin.Context, user *models.User) {
	horse, ok := loadHorse(c)
	if !ok {
		return
	}
	voted := false
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("horse_id = ? AND user_id = ?", horse.ID, user.ID).Delete(&models.HorseVote{})
		if result.Error != nil {
			return result.Error
		}
		delta := "vote_count - 1"
		if result.RowsAffected == 0 {
			if err := tx.Create(&models.HorseVote{HorseID: horse.ID, UserID: user.ID}).Error; err != nil {
				return err
			}
			voted = true
			delta = "vote_count + 1"
		}
		if err := tx.Model(&horse).UpdateColumn("vote_count", gorm.Expr(delta)).Error; err != nil {
			return err
		}
		return tx.Select("vote_count").First(&horse, horse.ID).Error
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.HorsePaths(horse.Slug)...)
	c.JSON(http.StatusOK, gin.H{"voted": voted, "vote_count": horse.VoteCount})
}

func HorseComment(c *gin.Context, user *models.User) {
	horse, ok := loadHorse(c)
	if !ok {
		return
	}
	req := CommentRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	comment := models.HorseComment{HorseID: horse.ID, AuthorID: user.ID, Body: req.Body}
	if err := dbFor(c).Create(&comment).Error; err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.HorsePaths(horse.Slug)...)
	c.JSON(http.StatusCreated, comment)
}

func HorseDelete(c *gin.Context, user *models.User) {
	horse, ok := loadHorse(c)
	if !ok {
		return
	}
	if !canModerate(user, horse.OwnerID, models.CapModerateContent) {
		c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
		return
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := deleteHorse(tx, horse.ID); err != nil {
			return err
		}
		if user.ID == horse.OwnerID {
			return nil
		}
		return models.LogAdminAction(tx, user.ID, models.ActionContentRemove, models.TargetHorse, horse.ID, gin.H{"name": horse.Name})
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.HorsePaths(horse.Slug), revalidate.ProfilePaths(horse.OwnerID))...)
	c.JSON(http.StatusOK, OKResponse)
}

func deleteHorse(tx *gorm.DB, id uint64) error {
	if err := tx.Where("horse_id = ?", id).Delete(&models.HorseVote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("horse_id = ?", id).Delete(&models.HorseComment{}).Error; err != nil {
		return err
	}
	result := tx.Delete(&models.Horse{}, id)
	if result.Error == nil && result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}
