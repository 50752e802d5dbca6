// Package web renders the public pages. Anonymous responses are kept in the
// revalidate page cache until a mutation marks their path stale.
package web

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"caballos/auth"
	"caballos/config"
	"caballos/logging"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"
	"caballos/utils"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

const pageMaxAge = 60 // seconds, browsers and proxies

// Register loads the templates and mounts every page on engine
func Register(engine *gin.Engine) {
	engine.SetFuncMap(FuncMap())
	engine.LoadHTMLGlob(filepath.Join(config.TEMPLATES_DIR, "*.tmpl"))
	engine.Static("/static", filepath.Join(config.TEMPLATES_DIR, "static"))

	public := engine.Group("/", (&utils.CacheRouter{CacheTime: pageMaxAge, Public: true}).Handler(), Cached)
	public.GET("/", HomePage)
	public.GET("/foro", ForumPage)
	public.GET("/foro/:id", ThreadPage)
	public.GET("/salon-de-la-fama", HallOfFamePage)
	public.GET("/salon-de-la-fama/:slug", HorsePage)
	public.GET("/galeria", GalleryPage)
	engine.GET("/galeria/:id", countAlbumView, (&utils.CacheRouter{CacheTime: pageMaxAge, Public: true}).Handler(), Cached, AlbumPage)
	public.GET("/mercado", MarketPage)
	public.GET("/perfil/:id", ProfilePage)

	// Never cached
	engine.GET("/admin", AdminPage)
	engine.GET("/robots.txt", Robots)
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"ago": func(unix int64) string {
			return humanize.Time(time.Unix(unix, 0))
		},
		"comma": func(n int64) string {
			return humanize.Comma(n)
		},
		"bytes": func(n int64) string {
			return humanize.IBytes(uint64(n))
		},
		"price": func(cents int64, currency string) string {
			return humanize.FormatFloat("#.###,##", float64(cents)/100) + " " + currency
		},
		"mediaURL": mediaURL,
		"tags":     utils.SplitTags,
		"excerpt": func(s string, n int) string {
			r := []rune(strings.TrimSpace(s))
			if len(r) <= n {
				return string(r)
			}
			return string(r[:n]) + "…"
		},
	}
}

// mediaURL only links public files, private ones never end up in a shared page
func mediaURL(m *models.MediaFile) string {
	if m == nil || !m.IsPublic {
		return ""
	}
	path := m.ThumbPath
	if path == "" {
		path = m.Path
	}
	return storage.GetDefaultStorage().PublicURL(path)
}

type cacheWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Query parameters the pages read. Anything else is left out of the cache key.
var pageQueryParams = []string{"page", "per_page", "category", "breed", "sort", "owner", "tag"}

// cacheKey is the request path plus the known query parameters in a stable order
func cacheKey(r *http.Request) string {
	known := url.Values{}
	query := r.URL.Query()
	for _, name := range pageQueryParams {
		if v := query.Get(name); v != "" {
			known.Set(name, v)
		}
	}
	if len(known) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + known.Encode()
}

// Cached serves anonymous GET requests from the page cache.
// Signed in users always get a fresh render that shared caches must not keep.
func Cached(c *gin.Context) {
	if c.Request.Method != http.MethodGet || auth.CurrentUser(c) != nil {
		c.Header("X-Cache", "BYPASS")
		c.Header("cache-control", "private, no-cache")
		c.Next()
		return
	}
	key := cacheKey(c.Request)
	if page, ok := revalidate.Get(key); ok {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, page.ContentType, page.Body)
		c.Abort()
		return
	}
	c.Header("X-Cache", "MISS")
	generation := revalidate.Generation(c.Request.URL.Path)
	w := &cacheWriter{ResponseWriter: c.Writer}
	c.Writer = w
	c.Next()
	if w.Status() == http.StatusOK && !c.IsAborted() {
		revalidate.Store(key, generation, w.body.Bytes(), w.Header().Get("Content-Type"))
	}
}

// render adds what every page template needs
func render(c *gin.Context, status int, name string, data gin.H) {
	settings, err := models.Settings()
	if err != nil {
		logging.L.Errorw("page settings", "error", err)
		settings = models.DefaultSettings
	}
	data["Settings"] = settings
	user := auth.CurrentUser(c)
	data["User"] = user
	data["IsModerator"] = user != nil && user.Can(models.CapModerateContent)
	if _, ok := data["Title"]; !ok {
		data["Title"] = settings["site_title"]
	}
	c.HTML(status, name, data)
}

func errorPage(c *gin.Context, status int, message string) {
	c.Abort()
	render(c, status, "error.tmpl", gin.H{"Title": http.StatusText(status), "Status": status, "Message": message})
}

func Robots(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /admin\nDisallow: /api/\nDisallow: /files/\n")
}
