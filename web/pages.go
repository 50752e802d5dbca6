package web

import (
	"errors"
	"net/http"
	"strconv"

	"caballos/auth"
	"caballos/db"
	"caballos/gallery"
	"caballos/logging"
	"caballos/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const homeListSize = 6

func dbFor(c *gin.Context) *gorm.DB {
	return db.Instance.WithContext(c.Request.Context())
}

func page(c *gin.Context) models.Page {
	p := models.Page{}
	_ = c.ShouldBindQuery(&p)
	p.Normalize()
	return p
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		errorPage(c, http.StatusNotFound, "Página no encontrada")
		return 0, false
	}
	return id, true
}

// failed renders the error page for err, returns false if there was nothing to render
func failed(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gallery.ErrNotFound):
		errorPage(c, http.StatusNotFound, "Página no encontrada")
	case errors.Is(err, gallery.ErrForbidden):
		errorPage(c, http.StatusForbidden, "No tienes acceso a esta página")
	default:
		logging.L.Errorw("page failed", "path", c.Request.URL.Path, "error", err)
		errorPage(c, http.StatusInternalServerError, "Algo salió mal, inténtalo de nuevo más tarde")
	}
	return true
}

func HomePage(c *gin.Context) {
	threads := []models.Thread{}
	horses := []models.Horse{}
	ads := []models.Ad{}
	err := dbFor(c).Preload("Author").Order("last_reply_at DESC, id DESC").Limit(homeListSize).Find(&threads).Error
	if err == nil {
		err = dbFor(c).Preload("CoverMedia").Order("vote_count DESC, id DESC").Limit(homeListSize).Find(&horses).Error
	}
	if err == nil {
		err = dbFor(c).Preload("CoverMedia").Where("status = ?", models.AdStatusActive).
			Order("created_at DESC, id DESC").Limit(homeListSize).Find(&ads).Error
	}
	if failed(c, err) {
		return
	}
	albums, err := gallery.ListAlbums(c.Request.Context(), nil, gallery.AlbumFilter{}, models.Page{Page: 1, PerPage: homeListSize})
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "home.tmpl", gin.H{
		"Threads": threads,
		"Horses":  horses,
		"Ads":     ads,
		"Albums":  albums.Items,
	})
}

func ForumPage(c *gin.Context) {
	category := c.Query("category")
	query := dbFor(c).Model(&models.Thread{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	threads, err := models.Paginate[models.Thread](query.Order("pinned DESC, last_reply_at DESC, id DESC"), page(c), "Author")
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "forum.tmpl", gin.H{
		"Title":      "Foro",
		"Category":   category,
		"Categories": models.ThreadCategories,
		"Threads":    threads,
	})
}

func ThreadPage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	thread := models.Thread{}
	if failed(c, dbFor(c).Preload("Author").First(&thread, id).Error) {
		return
	}
	replies, err := models.Paginate[models.Reply](
		dbFor(c).Model(&models.Reply{}).Where("thread_id = ?", thread.ID).Order("created_at, id"), page(c), "Author")
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "thread.tmpl", gin.H{
		"Title":   thread.Title,
		"Thread":  thread,
		"Replies": replies,
	})
}

func HallOfFamePage(c *gin.Context) {
	query := dbFor(c).Model(&models.Horse{})
	breed := c.Query("breed")
	if breed != "" {
		query = query.Where("breed = ?", breed)
	}
	if c.Query("sort") == "recent" {
		query = query.Order("created_at DESC, id DESC")
	} else {
		query = query.Order("vote_count DESC, id DESC")
	}
	horses, err := models.Paginate[models.Horse](query, page(c), "CoverMedia", "Owner")
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "horses.tmpl", gin.H{
		"Title":  "Salón de la Fama",
		"Breed":  breed,
		"Horses": horses,
	})
}

func HorsePage(c *gin.Context) {
	horse := models.Horse{}
	err := dbFor(c).Preload("Owner").Preload("CoverMedia").Where("slug = ?", c.Param("slug")).First(&horse).Error
	if failed(c, err) {
		return
	}
	comments := []models.HorseComment{}
	err = dbFor(c).Preload("Author").Where("horse_id = ?", horse.ID).Order("created_at DESC, id DESC").Limit(50).Find(&comments).Error
	if failed(c, err) {
		return
	}
	data := gin.H{
		"Title":    horse.Name,
		"Horse":    horse,
		"Comments": comments,
	}
	// The linked album may have been made private since
	if horse.AlbumID != nil {
		if members, err := gallery.AlbumMembers(c.Request.Context(), auth.CurrentUser(c), *horse.AlbumID); err == nil {
			data["Members"] = members
		}
	}
	render(c, http.StatusOK, "horse.tmpl", data)
}

func GalleryPage(c *gin.Context) {
	filter := gallery.AlbumFilter{}
	_ = c.ShouldBindQuery(&filter)
	albums, err := gallery.ListAlbums(c.Request.Context(), auth.CurrentUser(c), filter, page(c))
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "gallery.tmpl", gin.H{
		"Title":      "Galería",
		"Filter":     filter,
		"Categories": models.Categories,
		"Albums":     albums,
	})
}

// countAlbumView runs before the page cache so cached hits are counted too
func countAlbumView(c *gin.Context) {
	if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
		if err = gallery.CountView(c.Request.Context(), id); err != nil {
			logging.L.Warnw("album view count", "album", id, "error", err)
		}
	}
	c.Next()
}

func AlbumPage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	viewer := auth.CurrentUser(c)
	album, err := gallery.GetAlbum(c.Request.Context(), viewer, id)
	if failed(c, err) {
		return
	}
	members, err := gallery.AlbumMembers(c.Request.Context(), viewer, id)
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "album.tmpl", gin.H{
		"Title":   album.Title,
		"Album":   &album,
		"Members": members,
	})
}

func MarketPage(c *gin.Context) {
	category := c.Query("category")
	query := dbFor(c).Model(&models.Ad{}).Where("status = ?", models.AdStatusActive)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	ads, err := models.Paginate[models.Ad](query.Order("created_at DESC, id DESC"), page(c), "CoverMedia", "Seller")
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "market.tmpl", gin.H{
		"Title":      "Mercado",
		"Category":   category,
		"Categories": models.AdCategories,
		"Ads":        ads,
		"Enabled":    models.Setting("market_enabled") == "true",
	})
}

func ProfilePage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := models.UserByID(id)
	if failed(c, err) {
		return
	}
	threads := []models.Thread{}
	horses := []models.Horse{}
	ads := []models.Ad{}
	err = dbFor(c).Where("author_id = ?", id).Order("created_at DESC").Limit(20).Find(&threads).Error
	if err == nil {
		err = dbFor(c).Preload("CoverMedia").Where("owner_id = ?", id).Order("created_at DESC").Find(&horses).Error
	}
	if err == nil {
		err = dbFor(c).Where("seller_id = ? AND status = ?", id, models.AdStatusActive).Order("created_at DESC").Find(&ads).Error
	}
	if failed(c, err) {
		return
	}
	// Anonymous view, the page is cached for everyone
	albums, err := gallery.ListAlbums(c.Request.Context(), nil, gallery.AlbumFilter{OwnerID: id}, models.Page{Page: 1, PerPage: 50})
	if failed(c, err) {
		return
	}
	render(c, http.StatusOK, "profile.tmpl", gin.H{
		"Title":   profile.Name,
		"Profile": profile,
		"Threads": threads,
		"Horses":  horses,
		"Ads":     ads,
		"Albums":  albums.Items,
	})
}
