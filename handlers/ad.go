package handlers

import (
	"net/http"
	"strings"

	"caballos/auth"
	"caballos/models"
	"caballos/revalidate"
	"caballos/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdRequest struct {
	Title        string  `json:"title" binding:"required,max=200"`
	Category     string  `json:"category" binding:"required"`
	PriceCents   int64   `json:"price_cents" binding:"min=0"`
	Currency     string  `json:"currency" binding:"omitempty,len=3"`
	Location     string  `json:"location" binding:"max=150"`
	Body         string  `json:"body"`
	CoverMediaID *uint64 `json:"cover_media_id"`
}

type AdUpdateRequest struct {
	Title        *string `json:"title" binding:"omitempty,min=1,max=200"`
	PriceCents   *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Location     *string `json:"location"`
	Body         *string `json:"body"`
	Status       *string `json:"status"`
	CoverMediaID *uint64 `json:"cover_media_id"`
}

func AdList(c *gin.Context) {
	query := dbFor(c).Model(&models.Ad{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	status := c.DefaultQuery("status", models.AdStatusActive)
	if status == models.AdStatusHidden {
		user := auth.CurrentUser(c)
		if user == nil || !user.Can(models.CapModerateContent) {
			c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
			return
		}
	}
	if status != "all" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", models.AdStatusHidden)
	}
	if min, ok := queryInt64(c, "min_price"); ok {
		query = query.Where("price_cents >= ?", min)
	}
	if max, ok := queryInt64(c, "max_price"); ok {
		query = query.Where("price_cents <= ?", max)
	}
	if seller := queryUint(c, "seller"); seller != 0 {
		query = query.Where("seller_id = ?", seller)
	}
	result, err := models.Paginate[models.Ad](query.Order("created_at DESC, id DESC"), bindPage(c), "CoverMedia", "Seller")
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func AdCreate(c *gin.Context, user *models.User) {
	if models.Setting("market_enabled") != "true" {
		c.AbortWithStatusJSON(http.StatusForbidden, Response{"the marketplace is closed"})
		return
	}
	req := AdRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !models.ValidAdCategory(req.Category) {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{"unknown category"})
		return
	}
	if !checkMediaRefs(c, user, req.CoverMediaID, nil) {
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}
	ad := models.Ad{
		SellerID:     user.ID,
		Title:        strings.TrimSpace(req.Title),
		Slug:         utils.Slugify(req.Title),
		Category:     req.Category,
		Status:       models.AdStatusActive,
		PriceCents:   req.PriceCents,
		Currency:     strings.ToUpper(req.Currency),
		Location:     req.Location,
		Body:         req.Body,
		CoverMediaID: nonZero(req.CoverMediaID),
	}
	if err := dbFor(c).Create(&ad).Error; err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.AdPaths(), revalidate.ProfilePaths(user.ID))...)
	c.JSON(http.StatusCreated, ad)
}

func loadAd(c *gin.Context) (ad models.Ad, ok bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := dbFor(c).First(&ad, id).Error; err != nil {
		abortWith(c, err)
		return ad, false
	}
	return ad, true
}

func AdUpdate(c *gin.Context, user *models.User) {
	ad, ok := loadAd(c)
	if !ok {
		return
	}
	if !canModerate(user, ad.SellerID, models.CapModerateContent) {
		c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
		return
	}
	req := AdUpdateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = strings.TrimSpace(*req.Title)
		changes["slug"] = utils.Slugify(*req.Title)
	}
	if req.PriceCents != nil {
		changes["price_cents"] = *req.PriceCents
	}
	if req.Location != nil {
		changes["location"] = *req.Location
	}
	if req.Body != nil {
		changes["body"] = *req.Body
	}
	if req.Status != nil {
		if !models.ValidAdStatus(*req.Status) {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{"unknown status"})
			return
		}
		changes["status"] = *req.Status
	}
	if req.CoverMediaID != nil {
		if !checkMediaRefs(c, user, req.CoverMediaID, nil) {
			return
		}
		changes["cover_media_id"] = nonZero(req.CoverMediaID)
	}
	if len(changes) == 0 {
		c.JSON(http.StatusOK, ad)
		return
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ad).Updates(changes).Error; err != nil {
			return err
		}
		if user.ID == ad.SellerID {
			return nil
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAdModerate, models.TargetAd, ad.ID, changes)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.AdPaths(), revalidate.ProfilePaths(ad.SellerID))...)
	dbFor(c).First(&ad, ad.ID)
	c.JSON(http.StatusOK, ad)
}

func AdDelete(c *gin.Context, user *models.User) {
	ad, ok := loadAd(c)
	if !ok {
		return
	}
	if !canModerate(user, ad.SellerID, models.CapModerateContent) {
		c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenResponse)
		return
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ad).Error; err != nil {
			return err
		}
		if user.ID == ad.SellerID {
			return nil
		}
		return models.LogAdminAction(tx, user.ID, models.ActionContentRemove, models.TargetAd, ad.ID, gin.H{"title": ad.Title})
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.Join(revalidate.AdPaths(), revalidate.ProfilePaths(ad.SellerID))...)
	c.JSON(http.StatusOK, OKResponse)
}
