package models

import (
	"caballos/utils"
)

type MediaAlbum struct {
	ID           uint64     `gorm:"primaryKey" json:"id"`
	CreatedByID  uint64     `gorm:"not null;index:creator_album_created,priority:1" json:"created_by_id"`
	CreatedBy    *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"created_by,omitempty"`
	CreatedAt    int64      `gorm:"index:creator_album_created,priority:2" json:"created_at"`
	UpdatedAt    int64      `json:"updated_at"`
	Title        string     `gorm:"type:varchar(200);not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Category     string     `gorm:"type:varchar(30);index" json:"category"`
	IsPublic     bool       `gorm:"not null;default:false" json:"is_public"`
	CoverMediaID *uint64    `json:"cover_media_id"`
	CoverMedia   *MediaFile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"cover_media,omitempty"`
	Tags         string     `gorm:"type:varchar(1000)" json:"tags"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
}

func (MediaAlbum) TableName() string {
	return "albums"
}

func (a *MediaAlbum) TagList() []string {
	return utils.SplitTags(a.Tags)
}

func (a *MediaAlbum) VisibleTo(u *User) bool {
	if a.IsPublic {
		return true
	}
	return u != nil && (a.CreatedByID == u.ID || u.Can(CapModerateMedia))
}

// CanMutateMembers covers add, remove and reorder of album media
func (a *MediaAlbum) CanMutateMembers(u *User) bool {
	return u != nil && u.ID != 0 && (a.CreatedByID == u.ID || u.Can(CapModerateMedia))
}

func (a *MediaAlbum) CanDelete(u *User) bool {
	return u != nil && u.ID != 0 && (a.CreatedByID == u.ID || u.Can(CapAdmin))
}
