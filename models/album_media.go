package models

import (
	"gorm.io/gorm"
)

// AlbumMedia links an album to a media file. OrderIndex defines the display
// order, it is monotonic on insert but not necessarily contiguous.
type AlbumMedia struct {
	AlbumID    uint64      `gorm:"primaryKey;index:album_media_order,priority:1" json:"album_id"`
	Album      *MediaAlbum `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"album,omitempty"`
	MediaID    uint64      `gorm:"primaryKey;index" json:"media_id"`
	Media      *MediaFile  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"media,omitempty"`
	OrderIndex int64       `gorm:"not null;index:album_media_order,priority:2" json:"order_index"`
	Caption    *string     `gorm:"type:varchar(500)" json:"caption"`
	Version    uint64      `gorm:"not null;default:1" json:"version"`
	CreatedAt  int64       `json:"created_at"`
}

func (AlbumMedia) TableName() string {
	return "album_media"
}

// MaxOrderIndex returns 0 for an empty album
func MaxOrderIndex(tx *gorm.DB, albumID uint64) (max int64, err error) {
	err = tx.Model(&AlbumMedia{}).
		Select("COALESCE(MAX(order_index), 0)").
		Where("album_id = ?", albumID).
		Scan(&max).Error
	return
}
