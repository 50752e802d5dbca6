package gallery

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"caballos/config"
	"caballos/db"
	"caballos/logging"
	"caballos/metrics"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"
	"caballos/utils"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

type SubmitOptions struct {
	Category           string
	IsPublic           bool
	Tags               []string
	Description        string
	GenerateThumbnails bool
	Subpath            string

	CreateAlbum      bool
	AlbumTitle       string
	AlbumDescription string
	AlbumCategory    string
}

// Validate fills in defaults and runs before anything is uploaded
func (o *SubmitOptions) Validate() error {
	if o.Category == "" {
		o.Category = models.CategoryGallery
	}
	if !models.ValidCategory(o.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, o.Category)
	}
	if !o.CreateAlbum {
		return nil
	}
	o.AlbumTitle = strings.TrimSpace(o.AlbumTitle)
	if o.AlbumTitle == "" {
		return fmt.Errorf("%w: album title is required", ErrInvalid)
	}
	if o.AlbumCategory == "" {
		o.AlbumCategory = o.Category
	}
	if !models.ValidCategory(o.AlbumCategory) {
		return fmt.Errorf("%w: unknown album category %q", ErrInvalid, o.AlbumCategory)
	}
	return nil
}

type MediaInfo struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	IsPublic     bool   `json:"is_public"`
	PublicURL    string `json:"public_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type FileResult struct {
	Name         string     `json:"name"`
	UploadStatus string     `json:"upload_status"`
	Error        string     `json:"error,omitempty"`
	Media        *MediaInfo `json:"media,omitempty"`
}

type SubmitResult struct {
	Files      []FileResult       `json:"files"`
	Album      *models.MediaAlbum `json:"album,omitempty"`
	AlbumError string             `json:"album_error,omitempty"`
}

// Completed returns the ids of the uploaded files, in submission order
func (r *SubmitResult) Completed() []uint64 {
	ids := []uint64{}
	for _, f := range r.Files {
		if f.UploadStatus == StatusCompleted && f.Media != nil {
			ids = append(ids, f.Media.ID)
		}
	}
	return ids
}

// Submit validates, uploads and records a batch of files. Rejected files never
// reach the storage or the database. A failing file does not affect its
// siblings and successful uploads are never rolled back. If an album was
// requested it is created afterwards, linking the completed files in order.
func Submit(ctx context.Context, store storage.StorageAPI, owner *models.User, candidates []Candidate, opts SubmitOptions, limits Limits) (result SubmitResult, err error) {
	if owner == nil || owner.ID == 0 {
		return result, ErrForbidden
	}
	if err = opts.Validate(); err != nil {
		return
	}
	if len(candidates) == 0 {
		return result, fmt.Errorf("%w: no files", ErrInvalid)
	}
	verdicts := Intake(candidates, limits)

	result.Files = make([]FileResult, len(candidates))
	usedPaths := map[string]bool{}
	for i, v := range verdicts {
		fr := FileResult{Name: v.Name}
		if !v.Accepted {
			fr.UploadStatus = StatusRejected
			fr.Error = v.Error
		} else if media, err := uploadOne(ctx, store, owner, &candidates[i], &opts, usedPaths); err != nil {
			logging.L.Errorw("upload failed", "user", owner.ID, "name", v.Name, "error", err)
			fr.UploadStatus = StatusFailed
			fr.Error = "upload failed: " + err.Error()
		} else {
			fr.UploadStatus = StatusCompleted
			fr.Media = media
		}
		metrics.Uploads.WithLabelValues(fr.UploadStatus).Inc()
		result.Files[i] = fr
	}

	if len(result.Completed()) > 0 {
		revalidate.Paths(revalidate.Join(revalidate.ProfilePaths(owner.ID), []string{revalidate.GalleryPath})...)
	}
	if !opts.CreateAlbum {
		return result, nil
	}
	ids := result.Completed()
	if len(ids) == 0 {
		result.AlbumError = "no file was uploaded, the album was not created"
		return result, nil
	}
	album, albumErr := CreateAlbum(ctx, owner, AlbumCreate{
		Title:       opts.AlbumTitle,
		Description: opts.AlbumDescription,
		Category:    opts.AlbumCategory,
		IsPublic:    opts.IsPublic,
		Tags:        opts.Tags,
	}, ids)
	if albumErr != nil {
		// Files stay flagged as pending, the orphan sweep collects them
		logging.L.Errorw("album creation after upload failed", "user", owner.ID, "error", albumErr)
		result.AlbumError = albumErr.Error()
		return result, nil
	}
	result.Album = &album
	return result, nil
}

func uploadOne(ctx context.Context, store storage.StorageAPI, owner *models.User, c *Candidate, opts *SubmitOptions, usedPaths map[string]bool) (*MediaInfo, error) {
	objectPath := storage.ObjectPath(opts.Category, owner.ID, opts.Subpath, time.Now(), c.Name)
	for usedPaths[objectPath] {
		ext := path.Ext(c.Name)
		objectPath = storage.ObjectPath(opts.Category, owner.ID, opts.Subpath, time.Now(), strings.TrimSuffix(c.Name, ext)+"-"+utils.RandSuffix()+ext)
	}
	usedPaths[objectPath] = true

	r, err := c.Open()
	if err != nil {
		return nil, err
	}
	size, err := store.Save(ctx, objectPath, r, c.MimeType)
	r.Close()
	if err != nil {
		return nil, err
	}
	metrics.UploadBytes.Add(float64(size))

	media := models.MediaFile{
		OwnerID:        owner.ID,
		Name:           c.Name,
		MimeType:       c.MimeType,
		Size:           size,
		Category:       opts.Category,
		Path:           objectPath,
		IsPublic:       opts.IsPublic,
		Tags:           utils.JoinTags(opts.Tags),
		Description:    opts.Description,
		ThumbRequested: opts.GenerateThumbnails && strings.HasPrefix(c.MimeType, "image/"),
		PendingAlbum:   opts.CreateAlbum,
	}
	if media.IsImage() {
		if r, err := c.Open(); err == nil {
			media.Width, media.Height, _ = utils.ImageSize(r)
			r.Close()
		}
	}
	if media.ThumbRequested {
		// Not fatal, the processing loop retries missing thumbnails
		if thumbPath, err := createThumb(ctx, store, &media, c); err != nil {
			logging.L.Warnw("thumbnail failed", "path", objectPath, "error", err)
		} else {
			media.ThumbPath = thumbPath
		}
	}

	if err = db.Instance.WithContext(ctx).Create(&media).Error; err != nil {
		// Best effort, the object would be unreachable without its row
		if delErr := store.Delete(context.WithoutCancel(ctx), objectPath); delErr != nil {
			logging.L.Warnw("cannot delete object after failed insert", "path", objectPath, "error", delErr)
		}
		if media.ThumbPath != "" {
			store.Delete(context.WithoutCancel(ctx), media.ThumbPath)
		}
		return nil, err
	}
	info, err := describe(ctx, store, &media)
	if err != nil {
		// Stored and recorded, the URLs can be asked for again later
		logging.L.Warnw("cannot describe uploaded media", "media", media.ID, "error", err)
		info = baseInfo(&media)
	}
	return info, nil
}

func createThumb(ctx context.Context, store storage.StorageAPI, media *models.MediaFile, c *Candidate) (string, error) {
	r, err := c.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	buf := bytes.Buffer{}
	converted, err := utils.CreateThumb(uint(config.THUMB_SIZE), config.MAX_IMAGE_PIXELS, r, &buf)
	if err != nil {
		metrics.ThumbnailsCreated.WithLabelValues("error").Inc()
		return "", err
	}
	thumbPath := storage.ThumbPath(media.Category, media.OwnerID, media.Path)
	if _, err = store.Save(ctx, thumbPath, &buf, "image/jpeg"); err != nil {
		metrics.ThumbnailsCreated.WithLabelValues("error").Inc()
		return "", err
	}
	if media.Width == 0 {
		media.Width, media.Height = converted.OldX, converted.OldY
	}
	metrics.ThumbnailsCreated.WithLabelValues("ok").Inc()
	return thumbPath, nil
}

func baseInfo(m *models.MediaFile) *MediaInfo {
	return &MediaInfo{
		ID:       m.ID,
		Name:     m.Name,
		MimeType: m.MimeType,
		Size:     m.Size,
		Width:    m.Width,
		Height:   m.Height,
		IsPublic: m.IsPublic,
	}
}

func describe(ctx context.Context, store storage.StorageAPI, m *models.MediaFile) (*MediaInfo, error) {
	info := baseInfo(m)
	var err error
	if info.PublicURL, _, err = objectURL(ctx, store, m, m.Path); err != nil {
		return nil, err
	}
	if m.ThumbPath != "" {
		if info.ThumbnailURL, _, err = objectURL(ctx, store, m, m.ThumbPath); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// objectURL is public for public files and signed otherwise
func objectURL(ctx context.Context, store storage.StorageAPI, m *models.MediaFile, objectPath string) (string, int64, error) {
	if m.IsPublic {
		return store.PublicURL(objectPath), 0, nil
	}
	url, err := store.SignedURL(ctx, objectPath, storage.SignedURLFor)
	if err != nil {
		return "", 0, err
	}
	return url, time.Now().Add(storage.SignedURLFor).Unix(), nil
}
