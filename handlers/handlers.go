package handlers

import (
	"caballos/auth"
	"caballos/metrics"
	"caballos/models"

	"github.com/gin-gonic/gin"
)

// Register mounts the JSON API, file serving and metrics on router
func Register(router gin.IRouter) {
	api := router.Group("/api")
	// Custom Auth Router
	authRouter := &auth.Router{Base: api}

	// Auth
	api.POST("/auth/signup", UserSignup)
	api.POST("/auth/signin", UserSignin)
	api.POST("/auth/signout", UserSignout)
	authRouter.GET("/auth/me", UserMe)
	authRouter.PUT("/auth/me", UserUpdate)

	// Uploads
	authRouter.POST("/upload/validate", UploadValidate)
	authRouter.POST("/upload", UploadSubmit)

	// Albums
	api.GET("/albums", AlbumList)
	authRouter.POST("/albums", AlbumCreate)
	api.GET("/albums/:id", AlbumGet)
	authRouter.PUT("/albums/:id", AlbumUpdate)    // owner or CapModerateMedia (checked in gallery)
	authRouter.DELETE("/albums/:id", AlbumDelete) // owner or CapAdmin (checked in gallery)
	api.GET("/albums/:id/media", AlbumMediaList)
	authRouter.POST("/albums/:id/media", AlbumMediaAdd)
	authRouter.DELETE("/albums/:id/media", AlbumMediaRemove)
	authRouter.PUT("/albums/:id/media", AlbumMediaReorder)

	// Media
	api.GET("/media", MediaList)
	api.GET("/media/:id", MediaGet)
	api.GET("/media/:id/url", MediaURL)
	authRouter.PUT("/media/:id", MediaUpdate)
	authRouter.DELETE("/media/:id", MediaDelete)
	router.GET("/files/*path", FilesServe)

	// Forum
	api.GET("/threads", ThreadList)
	authRouter.POST("/threads", ThreadCreate)
	api.GET("/threads/:id", ThreadGet)
	authRouter.POST("/threads/:id/replies", ThreadReply)
	authRouter.DELETE("/threads/:id", ThreadDelete)
	authRouter.PUT("/threads/:id/moderation", ThreadModerate, models.CapModerateContent)

	// Hall of Fame, :id is the slug for GET
	api.GET("/horses", HorseList)
	authRouter.POST("/horses", HorseCreate)
	api.GET("/horses/:id", HorseGet)
	authRouter.POST("/horses/:id/vote", HorseVote)
	authRouter.POST("/horses/:id/comments", HorseComment)
	authRouter.DELETE("/horses/:id", HorseDelete)

	// Marketplace
	api.GET("/ads", AdList)
	authRouter.POST("/ads", AdCreate)
	authRouter.PUT("/ads/:id", AdUpdate)
	authRouter.DELETE("/ads/:id", AdDelete)

	authRouter.POST("/reports", ReportCreate)

	// Admin
	authRouter.GET("/admin/reports", AdminReports, models.CapModerateContent)
	authRouter.PUT("/admin/reports/:id", AdminResolveReport, models.CapModerateContent)
	authRouter.GET("/admin/users", AdminUsers, models.CapManageUsers)
	authRouter.POST("/admin/grants", AdminGrantAdd, models.CapManageUsers)
	authRouter.DELETE("/admin/grants", AdminGrantRevoke, models.CapManageUsers)
	authRouter.GET("/admin/settings", AdminSettingsGet, models.CapManageSettings)
	authRouter.PUT("/admin/settings", AdminSettingsPut, models.CapManageSettings)
	authRouter.GET("/admin/actions", AdminActions, models.CapModerateContent)
	authRouter.GET("/admin/live", AdminLive, models.CapModerateContent)

	router.GET("/metrics", metrics.Handler())
}
