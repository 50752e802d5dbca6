package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"caballos/db"
	"caballos/metrics"
	"caballos/models"
	"caballos/revalidate"
	"caballos/utils"

	"gorm.io/gorm"
)

type AlbumCreate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
}

type AlbumUpdate struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
	IsPublic     *bool     `json:"is_public"`
	CoverMediaID *uint64   `json:"cover_media_id"`
	Tags         *[]string `json:"tags"`
}

type AlbumFilter struct {
	Category string `form:"category"`
	OwnerID  uint64 `form:"owner"`
	Tag      string `form:"tag"`
}

func (in *AlbumCreate) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: album title is required", ErrInvalid)
	}
	if in.Category == "" {
		in.Category = models.CategoryGallery
	}
	if !models.ValidCategory(in.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, in.Category)
	}
	return nil
}

// CreateAlbum creates the album and links the given media in one transaction.
// The first linked file becomes the cover.
func CreateAlbum(ctx context.Context, owner *models.User, in AlbumCreate, mediaIDs []uint64) (album models.MediaAlbum, err error) {
	if owner == nil || owner.ID == 0 {
		return album, ErrForbidden
	}
	if err = in.validate(); err != nil {
		return
	}
	album = models.MediaAlbum{
		CreatedByID: owner.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		IsPublic:    in.IsPublic,
		Tags:        utils.JoinTags(in.Tags),
	}
	err = db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&album).Error; err != nil {
			return err
		}
		if len(mediaIDs) == 0 {
			return nil
		}
		linked, err := linkMedia(tx, owner, album.ID, mediaIDs)
		if err != nil {
			return err
		}
		album.CoverMediaID = &linked[0]
		return tx.Model(&album).UpdateColumn("cover_media_id", linked[0]).Error
	})
	if err != nil {
		return models.MediaAlbum{}, err
	}
	metrics.AlbumMutations.WithLabelValues("create").Inc()
	revalidate.Paths(revalidate.Join(revalidate.AlbumPaths(album.ID), revalidate.ProfilePaths(owner.ID))...)
	return album, nil
}

func loadAlbum(tx *gorm.DB, id uint64) (album models.MediaAlbum, err error) {
	err = tx.First(&album, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("album %d: %w", id, ErrNotFound)
	}
	return
}

// GetAlbum hides albums the viewer cannot see
func GetAlbum(ctx context.Context, viewer *models.User, id uint64) (album models.MediaAlbum, err error) {
	err = db.Instance.WithContext(ctx).Preload("CreatedBy").Preload("CoverMedia").First(&album, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || err == nil && !album.VisibleTo(viewer) {
		return models.MediaAlbum{}, fmt.Errorf("album %d: %w", id, ErrNotFound)
	}
	return
}

func CountView(ctx context.Context, id uint64) error {
	return db.Instance.WithContext(ctx).Model(&models.MediaAlbum{ID: id}).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func UpdateAlbum(ctx context.Context, user *models.User, id uint64, in AlbumUpdate) (album models.MediaAlbum, err error) {
	err = db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if album, err = loadAlbum(tx, id); err != nil {
			return err
		}
		if !album.CanMutateMembers(user) {
			return ErrForbidden
		}
		changes := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return fmt.Errorf("%w: album title is required", ErrInvalid)
			}
			changes["title"] = title
		}
		if in.Description != nil {
			changes["description"] = *in.Description
		}
		if in.Category != nil {
			if !models.ValidCategory(*in.Category) {
				return fmt.Errorf("%w: unknown category %q", ErrInvalid, *in.Category)
			}
			changes["category"] = *in.Category
		}
		if in.IsPublic != nil {
			changes["is_public"] = *in.IsPublic
		}
		if in.Tags != nil {
			changes["tags"] = utils.JoinTags(*in.Tags)
		}
		if in.CoverMediaID != nil {
			if *in.CoverMediaID == 0 {
				changes["cover_media_id"] = nil
			} else {
				var count int64
				err := tx.Model(&models.AlbumMedia{}).
					Where("album_id = ? AND media_id = ?", id, *in.CoverMediaID).
					Count(&count).Error
				if err != nil {
					return err
				}
				if count == 0 {
					return fmt.Errorf("%w: the cover must be one of the album media", ErrInvalid)
				}
				changes["cover_media_id"] = *in.CoverMediaID
			}
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&album).Updates(changes).Error; err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAlbumUpdate, models.TargetAlbum, id, changes)
	})
	if err != nil {
		return models.MediaAlbum{}, err
	}
	metrics.AlbumMutations.WithLabelValues("update").Inc()
	revalidate.Paths(revalidate.Join(revalidate.AlbumPaths(id), revalidate.ProfilePaths(album.CreatedByID))...)
	return GetAlbum(ctx, user, id)
}

// DeleteAlbum removes the album and its join rows. Media files are never deleted here.
func DeleteAlbum(ctx context.Context, user *models.User, id uint64) error {
	var album models.MediaAlbum
	err := db.Instance.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		if album, err = loadAlbum(tx, id); err != nil {
			return err
		}
		if !album.CanDelete(user) {
			return ErrForbidden
		}
		removed := tx.Where("album_id = ?", id).Delete(&models.AlbumMedia{})
		if removed.Error != nil {
			return removed.Error
		}
		if err = tx.Model(&models.Horse{}).Where("album_id = ?", id).UpdateColumn("album_id", nil).Error; err != nil {
			return err
		}
		if err = tx.Delete(&models.MediaAlbum{}, id).Error; err != nil {
			return err
		}
		return models.LogAdminAction(tx, user.ID, models.ActionAlbumDelete, models.TargetAlbum, id, map[string]any{
			"title":         album.Title,
			"owner":         album.CreatedByID,
			"removed_links": removed.RowsAffected,
		})
	})
	if err != nil {
		return err
	}
	metrics.AlbumMutations.WithLabelValues("delete").Inc()
	revalidate.Paths(revalidate.Join(revalidate.AlbumPaths(id), revalidate.ProfilePaths(album.CreatedByID), revalidate.HorsePaths(""))...)
	return nil
}

// ListAlbums returns public albums plus the viewer's own, moderators see all
func ListAlbums(ctx context.Context, viewer *models.User, filter AlbumFilter, page models.Page) (models.PageResult[models.MediaAlbum], error) {
	query := db.Instance.WithContext(ctx).Model(&models.MediaAlbum{})
	switch {
	case viewer != nil && viewer.Can(models.CapModerateMedia):
	case viewer != nil && viewer.ID != 0:
		query = query.Where("is_public = ? OR created_by_id = ?", true, viewer.ID)
	default:
		query = query.Where("is_public = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.OwnerID != 0 {
		query = query.Where("created_by_id = ?", filter.OwnerID)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = tagFilter(query, tag)
	}
	return models.Paginate[models.MediaAlbum](query.Order("created_at DESC, id DESC"), page, "CoverMedia", "CreatedBy")
}

// tagFilter matches one tag of a comma separated list, see utils.JoinTags
func tagFilter(query *gorm.DB, tag string) *gorm.DB {
	return query.Where("tags = ? OR tags LIKE ? OR tags LIKE ? OR tags LIKE ?",
		tag, tag+",%", "%,"+tag, "%,"+tag+",%")
}
