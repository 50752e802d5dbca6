package models

// Horse is an entry of the Hall of Fame
type Horse struct {
	ID           uint64      `gorm:"primaryKey" json:"id"`
	OwnerID      uint64      `gorm:"not null;index" json:"owner_id"`
	Owner        *User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner,omitempty"`
	CreatedAt    int64       `gorm:"index" json:"created_at"`
	UpdatedAt    int64       `json:"updated_at"`
	Name         string      `gorm:"type:varchar(150);not null" json:"name"`
	Slug         string      `gorm:"type:varchar(120);index:uniq_horse_slug,unique" json:"slug"`
	Breed        string      `gorm:"type:varchar(100);index" json:"breed"`
	BirthYear    int         `json:"birth_year"`
	Description  string      `gorm:"type:text" json:"description"`
	CoverMediaID *uint64     `json:"cover_media_id"`
	CoverMedia   *MediaFile  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"cover_media,omitempty"`
	AlbumID      *uint64     `json:"album_id"`
	Album        *MediaAlbum `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"album,omitempty"`
	VoteCount    int64       `gorm:"not null;default:0;index" json:"vote_count"`
}

type HorseVote struct {
	HorseID   uint64 `gorm:"primaryKey" json:"horse_id"`
	Horse     *Horse `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"horse,omitempty"`
	UserID    uint64 `gorm:"primaryKey" json:"user_id"`
	User      *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type HorseComment struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	HorseID   uint64 `gorm:"not null;index:comment_horse_created,priority:1" json:"horse_id"`
	Horse     *Horse `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"horse,omitempty"`
	AuthorID  uint64 `gorm:"not null" json:"author_id"`
	Author    *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	CreatedAt int64  `gorm:"index:comment_horse_created,priority:2" json:"created_at"`
	Body      string `gorm:"type:text" json:"body"`
}
