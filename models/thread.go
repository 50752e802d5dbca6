package models

var ThreadCategories = []string{"general", "cria", "doma", "salud", "equipamiento", "eventos"}

func ValidThreadCategory(category string) bool {
	for _, c := range ThreadCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Thread is a forum topic
type Thread struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	AuthorID    uint64 `gorm:"not null;index" json:"author_id"`
	Author      *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	Category    string `gorm:"type:varchar(30);index:thread_category_activity,priority:1" json:"category"`
	Title       string `gorm:"type:varchar(200);not null" json:"title"`
	Slug        string `gorm:"type:varchar(100)" json:"slug"`
	Body        string `gorm:"type:text" json:"body"`
	Pinned      bool   `gorm:"not null;default:false" json:"pinned"`
	Locked      bool   `gorm:"not null;default:false" json:"locked"`
	ReplyCount  int64  `gorm:"not null;default:0" json:"reply_count"`
	LastReplyAt int64  `gorm:"index:thread_category_activity,priority:2" json:"last_reply_at"`
}

type Reply struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	ThreadID  uint64  `gorm:"not null;index:reply_thread_created,priority:1" json:"thread_id"`
	Thread    *Thread `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"thread,omitempty"`
	AuthorID  uint64  `gorm:"not null" json:"author_id"`
	Author    *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	CreatedAt int64   `gorm:"index:reply_thread_created,priority:2" json:"created_at"`
	Body      string  `gorm:"type:text" json:"body"`
}
