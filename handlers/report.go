package handlers

import (
	"net/http"

	"caballos/models"
	"caballos/revalidate"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   uint64 `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,max=2000"`
}

// reportTargets maps a report target type to its table
var reportTargets = map[string]any{
	models.TargetThread:  &models.Thread{},
	models.TargetReply:   &models.Reply{},
	models.TargetHorse:   &models.Horse{},
	models.TargetComment: &models.HorseComment{},
	models.TargetAd:      &models.Ad{},
	models.TargetMedia:   &models.MediaFile{},
	models.TargetAlbum:   &models.MediaAlbum{},
}

func targetExists(tx *gorm.DB, targetType string, id uint64) (bool, error) {
	model, ok := reportTargets[targetType]
	if !ok {
		return false, nil
	}
	var count int64
	err := tx.Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func ReportCreate(c *gin.Context, user *models.User) {
	req := ReportRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !models.ValidReportTarget(req.TargetType) {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{"unknown target type"})
		return
	}
	exists, err := targetExists(dbFor(c), req.TargetType, req.TargetID)
	if err != nil {
		abortWith(c, err)
		return
	}
	if !exists {
		c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	report := models.Report{
		ReporterID: user.ID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Status:     models.ReportOpen,
	}
	if err = dbFor(c).Create(&report).Error; err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.AdminPaths()...)
	c.JSON(http.StatusCreated, report)
}
