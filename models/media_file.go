package models

import (
	"strings"

	"caballos/utils"

	"gorm.io/gorm"
)

const (
	CategoryHallOfFame = "hall_of_fame"
	CategoryGallery    = "gallery"
	CategoryEvents     = "events"
	CategoryTraining   = "training"
)

var Categories = []string{CategoryHallOfFame, CategoryGallery, CategoryEvents, CategoryTraining}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// MediaFile is one uploaded object. Albums reference it through AlbumMedia.
type MediaFile struct {
	ID             uint64 `gorm:"primaryKey" json:"id"`
	OwnerID        uint64 `gorm:"not null;index:media_owner_created,priority:1" json:"owner_id"`
	Owner          *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner,omitempty"`
	CreatedAt      int64  `gorm:"index:media_owner_created,priority:2" json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
	Name           string `gorm:"type:varchar(300)" json:"name"`
	MimeType       string `gorm:"type:varchar(100)" json:"mime_type"`
	Size           int64  `json:"size"`
	Category       string `gorm:"type:varchar(30);index" json:"category"`
	Path           string `gorm:"type:varchar(700);index" json:"path"`
	ThumbPath      string `gorm:"type:varchar(700)" json:"thumb_path"`
	ThumbRequested bool   `gorm:"not null;default:false" json:"thumb_requested"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	IsPublic       bool   `gorm:"not null;default:false" json:"is_public"`
	Tags           string `gorm:"type:varchar(1000)" json:"tags"` // comma separated, see utils.JoinTags
	Description    string `gorm:"type:text" json:"description"`

	// Uploaded with an album requested, but not linked to it yet
	PendingAlbum bool `gorm:"not null;default:false;index" json:"pending_album"`
}

func (MediaFile) TableName() string {
	return "media_files"
}

func (m *MediaFile) BeforeSave(tx *gorm.DB) (err error) {
	m.Name = utils.SanitizeFileName(m.Name)
	return
}

func (m *MediaFile) IsImage() bool {
	return strings.HasPrefix(m.MimeType, "image/")
}

func (m *MediaFile) IsVideo() bool {
	return strings.HasPrefix(m.MimeType, "video/")
}

func (m *MediaFile) TagList() []string {
	return utils.SplitTags(m.Tags)
}

// VisibleTo: public, owned, or the caller moderates media
func (m *MediaFile) VisibleTo(u *User) bool {
	if m.IsPublic {
		return true
	}
	if u == nil {
		return false
	}
	return m.OwnerID == u.ID || u.Can(CapModerateMedia)
}

func (m *MediaFile) EditableBy(u *User) bool {
	return u != nil && (m.OwnerID == u.ID || u.Can(CapModerateMedia))
}
