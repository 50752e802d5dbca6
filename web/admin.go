package web

import (
	"net/http"

	"caballos/auth"
	"caballos/models"

	"github.com/gin-gonic/gin"
)

// AdminPage is the moderation dashboard. It is never cached, the live feed
// (GET /api/admin/live) tells it when to reload.
func AdminPage(c *gin.Context) {
	c.Header("cache-control", "no-cache")
	user := auth.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if !user.Can(models.CapModerateContent) {
		errorPage(c, http.StatusForbidden, "No tienes acceso a esta página")
		return
	}
	reports, err := models.Paginate[models.Report](
		dbFor(c).Model(&models.Report{}).Where("status = ?", models.ReportOpen).Order("created_at DESC, id DESC"),
		page(c), "Reporter")
	if failed(c, err) {
		return
	}
	actions := []models.AdminAction{}
	if failed(c, dbFor(c).Order("id DESC").Limit(30).Find(&actions).Error) {
		return
	}
	data := gin.H{
		"Title":       "Administración",
		"Reports":     reports,
		"Actions":     actions,
		"CanSettings": user.Can(models.CapManageSettings),
		"CanUsers":    user.Can(models.CapManageUsers),
	}
	render(c, http.StatusOK, "admin.tmpl", data)
}
