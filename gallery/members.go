package gallery

import (
	"context"
	"errors"
	"fmt"

	"caballos/db"
	"caballos/metrics"
	"caballos/models"
	"caballos/revalidate"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReorderItem struct {
	MediaID    uint64  `json:"media_id" binding:"required"`
	OrderIndex int64   `json:"order_index"`
	Caption    *string `json:"caption"`
	// Optional compare-and-swap, the whole batch fails when it does not match
	Version *uint64 `json:"version"`
}

type Member struct {
	MediaID    uint64            `json:"media_id"`
	OrderIndex int64             `json:"order_index"`
	Caption    *string           `json:"caption,omitempty"`
	Version    uint64            `json:"version"`
	Media      *models.MediaFile `json:"media"`
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := map[uint64]bool{}
	result := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// linkMedia upserts join rows after the album's current maximum order_index,
// in the given order. Every file must exist and be visible to the user.
// Returns the linked ids.
func linkMedia(tx *gorm.DB, user *models.User, albumID uint64, mediaIDs []uint64) ([]uint64, error) {
	ids := uniqueIDs(mediaIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no media ids", ErrInvalid)
	}
	files := []models.MediaFile{}
	if err := tx.Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, err
	}
	byID := map[uint64]*models.MediaFile{}
	for i := range files {
		byID[files[i].ID] = &files[i]
	}
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		if !m.VisibleTo(user) {
			return nil, fmt.Errorf("media %d: %w", id, ErrForbidden)
		}
	}
	max, err := models.MaxOrderIndex(tx, albumID)
	if err != nil {
		return nil, err
	}
	rows := make([]models.AlbumMedia, len(ids))
	for i, id := range ids {
		rows[i] = models.AlbumMedia{
			AlbumID:    albumID,
			MediaID:    id,
			OrderIndex: max + int64(i) + 1,
		}
	}
	set := clause.AssignmentColumns([]string{"order_index"})
	set = append(set, clause.Assignment{Column: clause.Column{Name: "version"}, Value: gorm.Expr("version + 1")})
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "album_id"}, {Name: "media_id"}},
		DoUpdates: set,
	}).Create(&rows).Error
	if err != nil {
		return nil, err
	}
	err = tx.Model(&models.MediaFile{}).
		Where("id IN ? AND pending_album = ?", ids, true).
		UpdateColumn("pending_album", false).Error
	return ids, err
}

func mutableAlbum(tx *gorm.DB, user *models.User, albumID uint64) (models.MediaAlbum, error) {
	album, err := loadAlbum(tx, albumID)
	if err != nil {
		return album, err
	}
	if !album.CanMutateMembers(user) {
		return album, fmt.Errorf("album %d: %w", albumID, ErrForbidden)
	}
	return album, nil
}

// AuthorizeMembers fails with ErrNotFound or ErrForbidden unless user may change the album's members
func AuthorizeMembers(ctx context.Context, user *models.User, albumID uint64) error {
	_, err := mutableAlbum(db.Instance.WithContext(ctx), user, albumID)
	return err
}

// AddMedia appends files to the album, files already in it move to the end
func AddMedia(ctx context.Context, user *models.User, albumID uint64, mediaIDs []uint64) (added []uint64, err error) {
	err = db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		album, err := mutableAlbum(tx, user, albumID)
		if err != nil {
			return err
		}
		if added, err = linkMedia(tx, user, albumID, mediaIDs); err != nil {
			return err
		}
		if album.CoverMediaID == nil {
			if err = tx.Model(&album).UpdateColumn("cover_media_id", added[0]).Error; err != nil {
				return err
			}
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAlbumMediaAdd, models.TargetAlbum, albumID, map[string]any{
			"media_ids": added,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.AlbumMutations.WithLabelValues("add").Inc()
	revalidate.Paths(revalidate.AlbumPaths(albumID)...)
	return added, nil
}

// RemoveMedia unlinks files from the album, the files themselves stay
func RemoveMedia(ctx context.Context, user *models.User, albumID uint64, mediaIDs []uint64) (removed int64, err error) {
	ids := uniqueIDs(mediaIDs)
	err = db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		album, err := mutableAlbum(tx, user, albumID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: no media ids", ErrInvalid)
		}
		result := tx.Where("album_id = ? AND media_id IN ?", albumID, ids).Delete(&models.AlbumMedia{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		if album.CoverMediaID != nil {
			for _, id := range ids {
				if id == *album.CoverMediaID {
					if err = tx.Model(&album).UpdateColumn("cover_media_id", nil).Error; err != nil {
						return err
					}
					break
				}
			}
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAlbumMediaRemove, models.TargetAlbum, albumID, map[string]any{
			"media_ids": ids,
			"removed":   removed,
		})
	})
	if err != nil {
		return 0, err
	}
	metrics.AlbumMutations.WithLabelValues("remove").Inc()
	revalidate.Paths(revalidate.AlbumPaths(albumID)...)
	return removed, nil
}

// Reorder applies all items or none. Items not listed keep their order_index.
func Reorder(ctx context.Context, user *models.User, albumID uint64, items []ReorderItem) error {
	err := db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := mutableAlbum(tx, user, albumID); err != nil {
			return err
		}
		if err := validateReorder(items); err != nil {
			return err
		}
		for _, item := range items {
			if err := reorderOne(tx, albumID, item); err != nil {
				return err
			}
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAlbumMediaReorder, models.TargetAlbum, albumID, map[string]any{
			"items": items,
		})
	})
	if err != nil {
		return err
	}
	metrics.AlbumMutations.WithLabelValues("reorder").Inc()
	revalidate.Paths(revalidate.AlbumPaths(albumID)...)
	return nil
}

func validateReorder(items []ReorderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalid)
	}
	seen := map[uint64]bool{}
	for _, item := range items {
		if item.MediaID == 0 || seen[item.MediaID] {
			return fmt.Errorf("%w: media ids must be unique and non zero", ErrInvalid)
		}
		if item.OrderIndex < 0 {
			return fmt.Errorf("%w: negative order_index for media %d", ErrInvalid, item.MediaID)
		}
		seen[item.MediaID] = true
	}
	return nil
}

func reorderOne(tx *gorm.DB, albumID uint64, item ReorderItem) error {
	query := tx.Model(&models.AlbumMedia{}).Where("album_id = ? AND media_id = ?", albumID, item.MediaID)
	if item.Version != nil {
		query = query.Where("version = ?", *item.Version)
	}
	changes := map[string]any{
		"order_index": item.OrderIndex,
		"version":     gorm.Expr("version + 1"),
	}
	if item.Caption != nil {
		changes["caption"] = *item.Caption
	}
	result := query.UpdateColumns(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}
	var current models.AlbumMedia
	err := tx.Where("album_id = ? AND media_id = ?", albumID, item.MediaID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("media %d is not in album %d: %w", item.MediaID, albumID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("media %d changed (version %d): %w", item.MediaID, current.Version, ErrConflict)
}

// AlbumMembers lists the album in display order, skipping files the viewer cannot see
func AlbumMembers(ctx context.Context, viewer *models.User, albumID uint64) ([]Member, error) {
	if _, err := GetAlbum(ctx, viewer, albumID); err != nil {
		return nil, err
	}
	rows := []models.AlbumMedia{}
	err := db.Instance.WithContext(ctx).
		Preload("Media").
		Where("album_id = ?", albumID).
		Order("order_index, media_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]Member, 0, len(rows))
	for _, row := range rows {
		if row.Media == nil || !row.Media.VisibleTo(viewer) {
			continue
		}
		result = append(result, Member{
			MediaID:    row.MediaID,
			OrderIndex: row.OrderIndex,
			Caption:    row.Caption,
			Version:    row.Version,
			Media:      row.Media,
		})
	}
	return result, nil
}
