package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"caballos/gallery"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportResolveRequest struct {
	Status        string `json:"status" binding:"required,oneof=resolved dismissed"`
	Resolution    string `json:"resolution"`
	RemoveContent bool   `json:"remove_content"`
}

type GrantRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=admin moderator"`
}

type AdminUserInfo struct {
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	CreatedAt int64    `json:"created_at"`
	Roles     []string `json:"roles"`
}

func AdminReports(c *gin.Context, user *models.User) {
	query := dbFor(c).Model(&models.Report{})
	if status := c.DefaultQuery("status", models.ReportOpen); status != "all" {
		query = query.Where("status = ?", status)
	}
	if target := c.Query("target_type"); target != "" {
		query = query.Where("target_type = ?", target)
	}
	result, err := models.Paginate[models.Report](query.Order("created_at DESC, id DESC"), bindPage(c), "Reporter", "ResolvedBy")
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// removeTarget deletes reported community content inside tx. Media files and
// albums are handled by the gallery package before, see AdminResolveReport.
func removeTarget(tx *gorm.DB, targetType string, id uint64) ([]string, error) {
	switch targetType {
	case models.TargetThread:
		return revalidate.ThreadPaths(id), deleteThread(tx, id)
	case models.TargetReply:
		threadID, err := deleteReply(tx, id)
		return revalidate.ThreadPaths(threadID), err
	case models.TargetHorse:
		horse := models.Horse{}
		if err := tx.First(&horse, id).Error; err != nil {
			return nil, err
		}
		return revalidate.HorsePaths(horse.Slug), deleteHorse(tx, id)
	case models.TargetComment:
		comment := models.HorseComment{}
		if err := tx.Preload("Horse").First(&comment, id).Error; err != nil {
			return nil, err
		}
		paths := revalidate.HorsePaths("")
		if comment.Horse != nil {
			paths = revalidate.HorsePaths(comment.Horse.Slug)
		}
		return paths, tx.Delete(&comment).Error
	case models.TargetAd:
		result := tx.Delete(&models.Ad{}, id)
		if result.Error == nil && result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		return revalidate.AdPaths(), result.Error
	}
	return nil, fmt.Errorf("%w: cannot remove %s", gallery.ErrInvalid, targetType)
}

func AdminResolveReport(c *gin.Context, user *models.User) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := ReportResolveRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	report := models.Report{}
	if err := dbFor(c).First(&report, id).Error; err != nil {
		abortWith(c, err)
		return
	}
	if report.Status != models.ReportOpen {
		c.AbortWithStatusJSON(http.StatusConflict, Response{"the report was already closed"})
		return
	}
	remove := req.RemoveContent && req.Status == models.ReportResolved

	// These run their own transactions and permission checks
	if remove && report.TargetType == models.TargetMedia {
		if err := gallery.DeleteMedia(c.Request.Context(), storage.GetDefaultStorage(), user, report.TargetID); err != nil {
			abortWith(c, err)
			return
		}
	}
	if remove && report.TargetType == models.TargetAlbum {
		if err := gallery.DeleteAlbum(c.Request.Context(), user, report.TargetID); err != nil {
			abortWith(c, err)
			return
		}
	}

	paths := revalidate.AdminPaths()
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if remove && report.TargetType != models.TargetMedia && report.TargetType != models.TargetAlbum {
			removed, err := removeTarget(tx, report.TargetType, report.TargetID)
			if err != nil {
				return err
			}
			paths = append(paths, removed...)
			err = models.LogAdminAction(tx, user.ID, models.ActionContentRemove, report.TargetType, report.TargetID, gin.H{"report": report.ID})
			if err != nil {
				return err
			}
		}
		err := tx.Model(&report).Updates(map[string]any{
			"status":         req.Status,
			"resolution":     req.Resolution,
			"resolved_by_id": user.ID,
		}).Error
		if err != nil {
			return err
		}
		// Other open reports about removed content are closed too
		if remove {
			err = tx.Model(&models.Report{}).
				Where("target_type = ? AND target_id = ? AND status = ?", report.TargetType, report.TargetID, models.ReportOpen).
				Updates(map[string]any{"status": models.ReportResolved, "resolved_by_id": user.ID, "resolution": "content removed"}).Error
			if err != nil {
				return err
			}
		}
		return models.LogAdminAction(tx, user.ID, models.ActionReportResolve, "report", report.ID, req)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(paths...)
	dbFor(c).First(&report, report.ID)
	c.JSON(http.StatusOK, report)
}

func AdminUsers(c *gin.Context, user *models.User) {
	query := dbFor(c).Model(&models.User{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("email LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	users, err := models.Paginate[models.User](query.Order("id"), bindPage(c), "Grants")
	if err != nil {
		abortWith(c, err)
		return
	}
	result := models.PageResult[AdminUserInfo]{Page: users.Page, PerPage: users.PerPage, Total: users.Total, Items: []AdminUserInfo{}}
	for _, u := range users.Items {
		result.Items = append(result.Items, AdminUserInfo{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
			Roles:     u.Roles(),
		})
	}
	c.JSON(http.StatusOK, result)
}

func AdminGrantAdd(c *gin.Context, user *models.User) {
	req := GrantRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := models.UserByID(req.UserID); err != nil {
		abortWith(c, err)
		return
	}
	role := models.RoleFromString(req.Role)
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		grant := models.Grant{UserID: req.UserID, Role: role, GrantorID: &user.ID}
		if err := tx.Where(models.Grant{UserID: req.UserID, Role: role}).FirstOrCreate(&grant).Error; err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionGrantAdd, models.TargetUser, req.UserID, req)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	revalidate.Paths(revalidate.AdminPaths()...)
	c.JSON(http.StatusOK, OKResponse)
}

func AdminGrantRevoke(c *gin.Context, user *models.User) {
	req := GrantRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role := models.RoleFromString(req.Role)
	if req.UserID == user.ID && role == models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{"you cannot revoke your own admin role"})
		return
	}
	var revoked int64
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND role = ?", req.UserID, role).Delete(&models.Grant{})
		if result.Error != nil {
			return result.Error
		}
		if revoked = result.RowsAffected; revoked == 0 {
			return nil
		}
		return models.LogAdminAction(tx, user.ID, models.ActionGrantRevoke, models.TargetUser, req.UserID, req)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	if revoked == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	revalidate.Paths(revalidate.AdminPaths()...)
	c.JSON(http.StatusOK, OKResponse)
}

func AdminSettingsGet(c *gin.Context, user *models.User) {
	settings, err := models.Settings()
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func AdminSettingsPut(c *gin.Context, user *models.User) {
	values := map[string]string{}
	if err := c.ShouldBindJSON(&values); err != nil {
		badRequest(c, err)
		return
	}
	for k := range values {
		if _, known := models.DefaultSettings[k]; !known {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{"unknown setting " + k})
			return
		}
	}
	err := dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := models.SaveSettings(tx, values); err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionSettingsUpdate, models.TargetSetting, 0, values)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	// Settings show up on every page
	revalidate.Reset()
	revalidate.Paths(revalidate.HomePath, revalidate.AdminPath)
	AdminSettingsGet(c, user)
}

func AdminActions(c *gin.Context, user *models.User) {
	query := dbFor(c).Model(&models.AdminAction{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if actor := queryUint(c, "actor"); actor != 0 {
		query = query.Where("actor_id = ?", actor)
	}
	result, err := models.Paginate[models.AdminAction](query.Order("id DESC"), bindPage(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
