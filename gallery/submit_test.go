package gallery

import (
	"context"
	"testing"

	"caballos/config"
	"caballos/db"
	"caballos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRejectsBeforeStorage(t *testing.T) {
	store := setup(t)
	u := newUser(t, "ana")
	limits := Limits{MaxBytes: 1024, Allowed: []string{"image/", "video/"}}

	candidates := []Candidate{
		sizedCandidate("huge.jpg", "image/jpeg", 4096),
		memCandidate("notes.txt", "text/plain", []byte("hola")),
	}
	result, err := Submit(context.Background(), store, u, candidates, SubmitOptions{}, limits)
	require.NoError(t, err)
	for _, f := range result.Files {
		assert.Equal(t, StatusRejected, f.UploadStatus)
		assert.NotEmpty(t, f.Error)
	}
	assert.Zero(t, store.saves.Load())
	assert.Zero(t, countRows(t, &models.MediaFile{}))
}

// Three files, the second one too large: two uploads, one rejection, then the
// two uploads go to a new album.
func TestSubmitScenarioWithAlbum(t *testing.T) {
	store := setup(t)
	u := newUser(t, "ana")
	limits := Limits{MaxBytes: 2048, Allowed: []string{"image/"}}
	candidates := []Candidate{
		memCandidate("uno.png", "image/png", pngBytes(t, 8, 8)),
		sizedCandidate("dos.png", "image/png", 10*1024),
		memCandidate("tres.png", "image/png", pngBytes(t, 8, 8)),
	}
	result, err := Submit(context.Background(), store, u, candidates, SubmitOptions{Category: models.CategoryGallery}, limits)
	require.NoError(t, err)
	require.Len(t, result.Files, 3)
	assert.Equal(t, StatusCompleted, result.Files[0].UploadStatus)
	assert.Equal(t, StatusRejected, result.Files[1].UploadStatus)
	assert.Equal(t, StatusCompleted, result.Files[2].UploadStatus)
	assert.Equal(t, int64(2), store.saves.Load())

	ids := result.Completed()
	require.Len(t, ids, 2)
	album, err := CreateAlbum(context.Background(), u, AlbumCreate{Title: "Test Album"}, ids)
	require.NoError(t, err)
	assert.Equal(t, "Test Album", album.Title)

	members, err := AlbumMembers(context.Background(), u, album.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, ids[0], members[0].MediaID)
	assert.Equal(t, int64(1), members[0].OrderIndex)
	assert.Equal(t, ids[1], members[1].MediaID)
	assert.Equal(t, int64(2), members[1].OrderIndex)
	require.NotNil(t, album.CoverMediaID)
	assert.Equal(t, ids[0], *album.CoverMediaID)
}

func TestSubmitCreateAlbum(t *testing.T) {
	store := setup(t)
	u := newUser(t, "ana")
	candidates := []Candidate{
		memCandidate("a.png", "image/png", pngBytes(t, 40, 20)),
		memCandidate("b.png", "image/png", pngBytes(t, 40, 20)),
	}
	opts := SubmitOptions{
		Category:           models.CategoryEvents,
		Tags:               []string{"Feria", "2024"},
		GenerateThumbnails: true,
		Subpath:            "feria",
		CreateAlbum:        true,
		AlbumTitle:         "Feria de Sevilla",
	}
	result, err := Submit(context.Background(), store, u, candidates, opts, DefaultLimits())
	require.NoError(t, err)
	require.NotNil(t, result.Album)
	assert.Empty(t, result.AlbumError)
	assert.Equal(t, models.CategoryEvents, result.Album.Category)

	for _, f := range result.Files {
		require.NotNil(t, f.Media)
		assert.NotEmpty(t, f.Media.ThumbnailURL)
		assert.Contains(t, f.Media.PublicURL, "sig=", "private files get signed URLs")
		assert.Equal(t, 40, f.Media.Width)
	}
	files := []models.MediaFile{}
	require.NoError(t, db.Instance.Order("id").Find(&files).Error)
	require.Len(t, files, 2)
	for _, m := range files {
		assert.False(t, m.PendingAlbum, "linked files are no longer pending")
		assert.Contains(t, m.Path, "events/1/feria/")
		assert.Contains(t, m.ThumbPath, "events/1/thumbs/")
		assert.Equal(t, "feria,2024", m.Tags)
	}
	// 2 objects + 2 thumbnails
	assert.Equal(t, int64(4), store.saves.Load())
}

func TestSubmitValidatesAlbumTitleFirst(t *testing.T) {
	store := setup(t)
	u := newUser(t, "ana")
	candidates := []Candidate{memCandidate("a.png", "image/png", pngBytes(t, 4, 4))}
	_, err := Submit(context.Background(), store, u, candidates, SubmitOptions{CreateAlbum: true, AlbumTitle: "  "}, DefaultLimits())
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Submit(context.Background(), store, u, candidates, SubmitOptions{Category: "nope"}, DefaultLimits())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, store.saves.Load())
}

func TestSubmitNoSuccessNoAlbum(t *testing.T) {
	store := setup(t)
	u := newUser(t, "ana")
	candidates := []Candidate{memCandidate("a.txt", "text/plain", []byte("x"))}
	result, err := Submit(context.Background(), store, u, candidates, SubmitOptions{CreateAlbum: true, AlbumTitle: "Vacío"}, DefaultLimits())
	require.NoError(t, err)
	assert.Nil(t, result.Album)
	assert.NotEmpty(t, result.AlbumError)
	assert.Zero(t, countRows(t, &models.MediaAlbum{}))
}

func TestSubmitStorageFailureIsPerFile(t *testing.T) {
	store := setup(t)
	store.failOn = "broken"
	u := newUser(t, "ana")
	candidates := []Candidate{
		memCandidate("good.png", "image/png", pngBytes(t, 4, 4)),
		memCandidate("broken.png", "image/png", pngBytes(t, 4, 4)),
		memCandidate("good.png", "image/png", pngBytes(t, 4, 4)),
	}
	result, err := Submit(context.Background(), store, u, candidates, SubmitOptions{IsPublic: true}, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Files[0].UploadStatus)
	assert.Equal(t, StatusFailed, result.Files[1].UploadStatus)
	assert.Equal(t, StatusCompleted, result.Files[2].UploadStatus)
	assert.Equal(t, int64(2), countRows(t, &models.MediaFile{}))

	paths := []string{}
	require.NoError(t, db.Instance.Model(&models.MediaFile{}).Pluck("path", &paths).Error)
	require.Len(t, paths, 2)
	assert.NotEqual(t, paths[0], paths[1], "same name in one batch never overwrites")
	assert.Contains(t, result.Files[0].Media.PublicURL, "/files/gallery/1/")
}

func TestSubmitKeepsFileWhenURLsFail(t *testing.T) {
	store := setup(t)
	store.noSigning = true
	u := newUser(t, "ana")
	opts := SubmitOptions{Category: models.CategoryGallery, CreateAlbum: true, AlbumTitle: "Privadas"}
	result, err := Submit(context.Background(), store, u, []Candidate{memCandidate("potro.png", "image/png", pngBytes(t, 6, 6))}, opts, DefaultLimits())
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, result.Files[0].UploadStatus)
	require.NotNil(t, result.Files[0].Media)
	assert.Empty(t, result.Files[0].Media.PublicURL)
	require.NotNil(t, result.Album)
	members, err := AlbumMembers(context.Background(), u, result.Album.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, result.Files[0].Media.ID, members[0].MediaID)
}

func TestSubmitSkipsThumbForHugeImages(t *testing.T) {
	store := setup(t)
	old := config.MAX_IMAGE_PIXELS
	t.Cleanup(func() { config.MAX_IMAGE_PIXELS = old })
	config.MAX_IMAGE_PIXELS = 100

	u := newUser(t, "ana")
	opts := SubmitOptions{IsPublic: true, GenerateThumbnails: true}
	result, err := Submit(context.Background(), store, u, []Candidate{memCandidate("grande.png", "image/png", pngBytes(t, 20, 10))}, opts, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Files[0].UploadStatus)
	assert.Empty(t, result.Files[0].Media.ThumbnailURL)
	assert.Equal(t, 20, result.Files[0].Media.Width, "dimensions come from the header")

	media := models.MediaFile{}
	require.NoError(t, db.Instance.First(&media, result.Files[0].Media.ID).Error)
	assert.True(t, media.ThumbRequested)
	assert.Empty(t, media.ThumbPath)
}
