package gallery

import (
	"context"
	"errors"
	"fmt"

	"caballos/db"
	"caballos/logging"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"
	"caballos/utils"

	"gorm.io/gorm"
)

type MediaUpdate struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	IsPublic    *bool     `json:"is_public"`
}

type MediaFilter struct {
	OwnerID  uint64 `form:"owner"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
}

func loadMedia(tx *gorm.DB, id uint64) (m models.MediaFile, err error) {
	err = tx.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return
}

func GetMedia(ctx context.Context, viewer *models.User, id uint64) (models.MediaFile, error) {
	m, err := loadMedia(db.Instance.WithContext(ctx), id)
	if err != nil {
		return m, err
	}
	if !m.VisibleTo(viewer) {
		return models.MediaFile{}, fmt.Errorf("media %d: %w", id, ErrForbidden)
	}
	return m, nil
}

// MediaURL resolves the URL of a file or its thumbnail. Private files get a
// signed URL, expiresAt is 0 for public ones.
func MediaURL(ctx context.Context, store storage.StorageAPI, viewer *models.User, id uint64, thumb bool) (url string, expiresAt int64, err error) {
	m, err := GetMedia(ctx, viewer, id)
	if err != nil {
		return
	}
	objectPath := m.Path
	if thumb && m.ThumbPath != "" {
		objectPath = m.ThumbPath
	}
	return objectURL(ctx, store, &m, objectPath)
}

// Describe adds URLs to a file for API responses
func Describe(ctx context.Context, store storage.StorageAPI, m *models.MediaFile) (*MediaInfo, error) {
	return describe(ctx, store, m)
}

func UpdateMedia(ctx context.Context, user *models.User, id uint64, in MediaUpdate) (m models.MediaFile, err error) {
	tx := db.Instance.WithContext(ctx)
	if m, err = loadMedia(tx, id); err != nil {
		return
	}
	if !m.EditableBy(user) {
		return models.MediaFile{}, fmt.Errorf("media %d: %w", id, ErrForbidden)
	}
	changes := map[string]any{}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.Tags != nil {
		changes["tags"] = utils.JoinTags(*in.Tags)
	}
	if in.IsPublic != nil {
		changes["is_public"] = *in.IsPublic
	}
	if len(changes) == 0 {
		return m, nil
	}
	if err = tx.Model(&m).UpdateColumns(changes).Error; err != nil {
		return
	}
	revalidate.Paths(revalidate.Join(mediaPaths(tx, m.ID), revalidate.ProfilePaths(m.OwnerID))...)
	return loadMedia(tx, id)
}

// mediaPaths lists the pages of every album showing the file
func mediaPaths(tx *gorm.DB, mediaID uint64) []string {
	albumIDs := []uint64{}
	tx.Model(&models.AlbumMedia{}).Where("media_id = ?", mediaID).Pluck("album_id", &albumIDs)
	paths := []string{revalidate.GalleryPath}
	for _, id := range albumIDs {
		paths = append(paths, revalidate.AlbumPaths(id)...)
	}
	return paths
}

// DeleteMedia removes the file, its album references and its objects.
// Album covers pointing at it are cleared.
func DeleteMedia(ctx context.Context, store storage.StorageAPI, user *models.User, id uint64) error {
	var (
		m     models.MediaFile
		paths []string
	)
	err := db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		if m, err = loadMedia(tx, id); err != nil {
			return err
		}
		if !m.EditableBy(user) {
			return fmt.Errorf("media %d: %w", id, ErrForbidden)
		}
		paths = mediaPaths(tx, id)
		if err = deleteMediaRows(tx, id); err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionMediaDelete, models.TargetMedia, id, map[string]any{
			"owner": m.OwnerID,
			"path":  m.Path,
		})
	})
	if err != nil {
		return err
	}
	deleteObjects(ctx, store, &m)
	revalidate.Paths(revalidate.Join(paths, revalidate.ProfilePaths(m.OwnerID))...)
	return nil
}

func deleteMediaRows(tx *gorm.DB, id uint64) error {
	if err := tx.Where("media_id = ?", id).Delete(&models.AlbumMedia{}).Error; err != nil {
		return err
	}
	for _, model := range []any{&models.MediaAlbum{}, &models.Horse{}, &models.Ad{}} {
		if err := tx.Model(model).Where("cover_media_id = ?", id).UpdateColumn("cover_media_id", nil).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.MediaFile{}, id).Error
}

// deleteObjects is best effort, a leftover object is only wasted space
func deleteObjects(ctx context.Context, store storage.StorageAPI, m *models.MediaFile) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range []string{m.Path, m.ThumbPath} {
		if p == "" {
			continue
		}
		if err := store.Delete(ctx, p); err != nil {
			logging.L.Warnw("cannot delete object", "path", p, "error", err)
		}
	}
}

func ListMedia(ctx context.Context, viewer *models.User, filter MediaFilter, page models.Page) (models.PageResult[models.MediaFile], error) {
	query := db.Instance.WithContext(ctx).Model(&models.MediaFile{})
	switch {
	case viewer != nil && viewer.Can(models.CapModerateMedia):
	case viewer != nil && viewer.ID != 0:
		query = query.Where("is_public = ? OR owner_id = ?", true, viewer.ID)
	default:
		query = query.Where("is_public = ?", true)
	}
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Tag != "" {
		query = tagFilter(query, filter.Tag)
	}
	return models.Paginate[models.MediaFile](query.Order("created_at DESC, id DESC"), page)
}
