package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"caballos/config"
	"caballos/db"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	engine  *gin.Engine
	cookies []*http.Cookie
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	mem, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, models.Migrate(mem))
	db.Instance = mem
	t.Cleanup(func() {
		if sqlDB, err := mem.DB(); err == nil {
			sqlDB.Close()
		}
	})
	revalidate.Reset()
	uploadLimiters.Clear()
	storage.SetDefaultStorage(storage.NewDiskStorage(&storage.Bucket{Path: t.TempDir(), PublicURL: "/files"}))

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	Register(engine)
	return engine
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return w
}

type upload struct {
	name string
	data []byte
}

func (c *client) upload(fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	c.t.Helper()
	buf := bytes.Buffer{}
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(c.t, err)
		_, err = part.Write(f.data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func anonymous(t *testing.T, engine *gin.Engine) *client {
	return &client{t: t, engine: engine}
}

// signedIn creates the user directly (with roles) and signs in through the API
func signedIn(t *testing.T, engine *gin.Engine, name string, roles ...models.Role) (*client, uint64) {
	t.Helper()
	u, err := models.UserCreate(name, name+"@example.com", "secret123")
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, models.GrantRole(u.ID, r, nil))
	}
	c := anonymous(t, engine)
	w := c.do(http.MethodPost, "/api/auth/signin", gin.H{"email": name + "@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return c, u.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[Response](t, w).Error
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{G: 120, A: 255})
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Instance.Model(model).Count(&n).Error)
	return n
}

func TestAuthFlow(t *testing.T) {
	engine := setup(t)
	c := anonymous(t, engine)

	w := c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "sign in required", errorOf(t, w))

	w = c.do(http.MethodPost, "/api/auth/signup", gin.H{"name": "Lucia", "email": "lucia@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/api/auth/signup", gin.H{"name": "Lucia", "email": "lucia@example.com", "password": "caballo123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "lucia@example.com", decode[UserInfo](t, w).Email)

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lucia", decode[UserInfo](t, w).Name)

	w = anonymous(t, engine).do(http.MethodPost, "/api/auth/signup", gin.H{"name": "Otra", "email": "lucia@example.com", "password": "caballo123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/signout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/auth/me", nil).Code)

	w = c.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "lucia@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrBadCredentials.Error(), errorOf(t, w))

	w = c.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "lucia@example.com", "password": "caballo123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/auth/me", nil).Code)
}

func TestUploadWithAlbum(t *testing.T) {
	engine := setup(t)
	c, _ := signedIn(t, engine, "ana")

	w := c.upload(map[string]string{
		"category":     "gallery",
		"is_public":    "true",
		"create_album": "true",
		"album_title":  "Feria de Sevilla",
	},
		upload{"a.png", pngBytes(t)},
		upload{"notes.txt", []byte("not an image at all")},
		upload{"b.png", pngBytes(t)},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[struct {
		Files []struct {
			Name         string `json:"name"`
			UploadStatus string `json:"upload_status"`
			Error        string `json:"error"`
			Media        *struct {
				ID        uint64 `json:"id"`
				PublicURL string `json:"public_url"`
			} `json:"media"`
		} `json:"files"`
		Album *models.MediaAlbum `json:"album"`
	}](t, w)

	require.Len(t, result.Files, 3)
	assert.Equal(t, "completed", result.Files[0].UploadStatus)
	assert.Equal(t, "rejected", result.Files[1].UploadStatus)
	assert.NotEmpty(t, result.Files[1].Error)
	assert.Nil(t, result.Files[1].Media)
	assert.Equal(t, "completed", result.Files[2].UploadStatus)
	assert.Contains(t, result.Files[0].Media.PublicURL, "/files/gallery/")
	require.NotNil(t, result.Album)
	assert.Equal(t, "Feria de Sevilla", result.Album.Title)
	assert.EqualValues(t, 2, count(t, &models.MediaFile{}))

	w = anonymous(t, engine).do(http.MethodGet, "/api/albums/"+itoa(result.Album.ID)+"/media", nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[struct {
		Items []struct {
			MediaID    uint64 `json:"media_id"`
			OrderIndex int64  `json:"order_index"`
		} `json:"items"`
	}](t, w)
	require.Len(t, members.Items, 2)
	assert.Equal(t, result.Files[0].Media.ID, members.Items[0].MediaID)
	assert.EqualValues(t, 1, members.Items[0].OrderIndex)
	assert.Equal(t, result.Files[2].Media.ID, members.Items[1].MediaID)
	assert.EqualValues(t, 2, members.Items[1].OrderIndex)

	// The public file is served straight from disk
	w = anonymous(t, engine).do(http.MethodGet, result.Files[0].Media.PublicURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadValidation(t *testing.T) {
	engine := setup(t)
	c, _ := signedIn(t, engine, "ana")

	w := c.upload(map[string]string{"create_album": "true"}, upload{"a.png", pngBytes(t)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.EqualValues(t, 0, count(t, &models.MediaFile{}))

	w = c.upload(map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = anonymous(t, engine).upload(map[string]string{}, upload{"a.png", pngBytes(t)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadRateLimit(t *testing.T) {
	engine := setup(t)
	defer func(v int) { config.UPLOAD_RATE_PER_MINUTE = v }(config.UPLOAD_RATE_PER_MINUTE)
	config.UPLOAD_RATE_PER_MINUTE = 2
	c, _ := signedIn(t, engine, "ana")

	w := c.upload(map[string]string{}, upload{"a.png", pngBytes(t)}, upload{"b.png", pngBytes(t)})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.upload(map[string]string{}, upload{"c.png", pngBytes(t)})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, RateLimitedResponse.Error, errorOf(t, w))
	assert.EqualValues(t, 2, count(t, &models.MediaFile{}))
}

// uploadIDs uploads n public images and returns their media ids
func uploadIDs(t *testing.T, c *client, n int) []uint64 {
	t.Helper()
	files := []upload{}
	for i := 0; i < n; i++ {
		files = append(files, upload{"img" + itoa(uint64(i)) + ".png", pngBytes(t)})
	}
	w := c.upload(map[string]string{"is_public": "true"}, files...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[struct {
		Files []struct {
			Media struct {
				ID uint64 `json:"id"`
			} `json:"media"`
		} `json:"files"`
	}](t, w)
	ids := []uint64{}
	for _, f := range result.Files {
		require.NotZero(t, f.Media.ID)
		ids = append(ids, f.Media.ID)
	}
	return ids
}

func createAlbum(t *testing.T, c *client, mediaIDs []uint64) uint64 {
	t.Helper()
	w := c.do(http.MethodPost, "/api/albums", gin.H{"title": "Potros", "category": "gallery", "is_public": true, "media_ids": mediaIDs})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.MediaAlbum](t, w).ID
}

func TestAlbumMutationPermissions(t *testing.T) {
	engine := setup(t)
	owner, _ := signedIn(t, engine, "ana")
	stranger, _ := signedIn(t, engine, "pedro")
	moderator, _ := signedIn(t, engine, "mod", models.RoleModerator)

	ids := uploadIDs(t, owner, 3)
	albumID := createAlbum(t, owner, ids[:2])
	path := "/api/albums/" + itoa(albumID)

	joins := count(t, &models.AlbumMedia{})
	actions := count(t, &models.AdminAction{})
	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, path + "/media", gin.H{"media_ids": []uint64{ids[2]}}},
		{http.MethodDelete, path + "/media", gin.H{"media_ids": []uint64{ids[0]}}},
		{http.MethodPut, path + "/media", gin.H{"items": []gin.H{{"media_id": ids[0], "order_index": 9}}}},
		// Malformed bodies are still refused as forbidden
		{http.MethodPost, path + "/media", gin.H{"media_ids": "todos"}},
		{http.MethodDelete, path + "/media", nil},
		{http.MethodPut, path + "/media", gin.H{"items": []gin.H{{"order_index": -1}}}},
		{http.MethodPut, path, gin.H{"title": "Mio"}},
		{http.MethodDelete, path, nil},
	} {
		w := stranger.do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.method+" "+tc.path)
		assert.NotEmpty(t, errorOf(t, w))

		w = anonymous(t, engine).do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
	assert.Equal(t, joins, count(t, &models.AlbumMedia{}))
	assert.Equal(t, actions, count(t, &models.AdminAction{}))

	// Moderators can change members but not delete the album
	w := moderator.do(http.MethodPost, path+"/media", gin.H{"media_ids": []uint64{ids[2]}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, joins+1, count(t, &models.AlbumMedia{}))
	assert.Equal(t, http.StatusForbidden, moderator.do(http.MethodDelete, path, nil).Code)

	w = owner.do(http.MethodDelete, path+"/media", gin.H{"media_ids": []uint64{ids[0], ids[1]}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]int64](t, w)["removed"])

	assert.Equal(t, http.StatusOK, owner.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, owner.do(http.MethodGet, path, nil).Code)
	assert.EqualValues(t, 3, count(t, &models.MediaFile{}))
}

func TestReorderConflict(t *testing.T) {
	engine := setup(t)
	owner, _ := signedIn(t, engine, "ana")
	ids := uploadIDs(t, owner, 2)
	albumID := createAlbum(t, owner, ids)
	path := "/api/albums/" + itoa(albumID) + "/media"

	stale := uint64(99)
	w := owner.do(http.MethodPut, path, gin.H{"items": []gin.H{
		{"media_id": ids[0], "order_index": 5},
		{"media_id": ids[1], "order_index": 6, "version": stale},
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorOf(t, w), "version conflict")

	// Nothing from the failed batch was applied
	order := []models.AlbumMedia{}
	require.NoError(t, db.Instance.Where("album_id = ?", albumID).Order("media_id").Find(&order).Error)
	require.Len(t, order, 2)
	assert.EqualValues(t, 1, order[0].OrderIndex)
	assert.EqualValues(t, 2, order[1].OrderIndex)

	w = owner.do(http.MethodPut, path, gin.H{"items": []gin.H{
		{"media_id": ids[0], "order_index": 2, "version": order[0].Version},
		{"media_id": ids[1], "order_index": 1, "caption": "El mejor"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, db.Instance.Where("album_id = ?", albumID).Order("order_index").Find(&order).Error)
	assert.Equal(t, ids[1], order[0].MediaID)
	require.NotNil(t, order[0].Caption)
	assert.Equal(t, "El mejor", *order[0].Caption)

	w = owner.do(http.MethodPut, path, gin.H{"items": []gin.H{{"media_id": 12345, "order_index": 1}}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportResolveRemovesContent(t *testing.T) {
	engine := setup(t)
	author, _ := signedIn(t, engine, "ana")
	reporter, _ := signedIn(t, engine, "pedro")
	moderator, modID := signedIn(t, engine, "mod", models.RoleModerator)

	w := author.do(http.MethodPost, "/api/threads", gin.H{"category": "general", "title": "Vendo burro", "body": "spam"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	thread := decode[models.Thread](t, w)

	w = reporter.do(http.MethodPost, "/api/reports", gin.H{"target_type": "thread", "target_id": 999, "reason": "spam"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = reporter.do(http.MethodPost, "/api/reports", gin.H{"target_type": "thread", "target_id": thread.ID, "reason": "spam"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode[models.Report](t, w)

	assert.Equal(t, http.StatusForbidden, reporter.do(http.MethodGet, "/api/admin/reports", nil).Code)
	w = moderator.do(http.MethodGet, "/api/admin/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.PageResult[models.Report]](t, w).Total)

	w = moderator.do(http.MethodPut, "/api/admin/reports/"+itoa(report.ID), gin.H{"status": "resolved", "resolution": "spam", "remove_content": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[models.Report](t, w)
	assert.Equal(t, models.ReportResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, modID, *resolved.ResolvedByID)

	assert.EqualValues(t, 0, count(t, &models.Thread{}))
	logged := []models.AdminAction{}
	require.NoError(t, db.Instance.Order("id").Find(&logged).Error)
	require.Len(t, logged, 2)
	assert.Equal(t, models.ActionContentRemove, logged[0].Action)
	assert.Equal(t, models.ActionReportResolve, logged[1].Action)

	w = moderator.do(http.MethodPut, "/api/admin/reports/"+itoa(report.ID), gin.H{"status": "dismissed"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminGrantsAndSettings(t *testing.T) {
	engine := setup(t)
	admin, adminID := signedIn(t, engine, "jefa", models.RoleAdmin)
	moderator, _ := signedIn(t, engine, "mod", models.RoleModerator)
	_, userID := signedIn(t, engine, "ana")

	assert.Equal(t, http.StatusForbidden, moderator.do(http.MethodPost, "/api/admin/grants", gin.H{"user_id": userID, "role": "moderator"}).Code)
	assert.Equal(t, http.StatusForbidden, moderator.do(http.MethodPut, "/api/admin/settings", gin.H{"announcement": "hola"}).Code)

	w := admin.do(http.MethodPost, "/api/admin/grants", gin.H{"user_id": userID, "role": "moderator"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u, err := models.UserByID(userID)
	require.NoError(t, err)
	assert.True(t, u.Can(models.CapModerateMedia))

	w = admin.do(http.MethodDelete, "/api/admin/grants", gin.H{"user_id": adminID, "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = admin.do(http.MethodDelete, "/api/admin/grants", gin.H{"user_id": userID, "role": "moderator"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = admin.do(http.MethodDelete, "/api/admin/grants", gin.H{"user_id": userID, "role": "moderator"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = admin.do(http.MethodPut, "/api/admin/settings", gin.H{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = admin.do(http.MethodPut, "/api/admin/settings", gin.H{"registration_open": "false"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", decode[map[string]string](t, w)["registration_open"])

	w = anonymous(t, engine).do(http.MethodPost, "/api/auth/signup", gin.H{"name": "Nuevo", "email": "nuevo@example.com", "password": "caballo123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = admin.do(http.MethodGet, "/api/admin/actions?action=grant.add", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.PageResult[models.AdminAction]](t, w).Total)
}
