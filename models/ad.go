package models

const (
	AdStatusActive = "active"
	AdStatusSold   = "sold"
	AdStatusHidden = "hidden"
)

var AdCategories = []string{"caballos", "equipamiento", "transporte", "servicios", "otros"}

func ValidAdCategory(category string) bool {
	for _, c := range AdCategories {
		if c == category {
			return true
		}
	}
	return false
}

func ValidAdStatus(status string) bool {
	return status == AdStatusActive || status == AdStatusSold || status == AdStatusHidden
}

// Ad is a marketplace listing
type Ad struct {
	ID           uint64     `gorm:"primaryKey" json:"id"`
	SellerID     uint64     `gorm:"not null;index" json:"seller_id"`
	Seller       *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"seller,omitempty"`
	CreatedAt    int64      `gorm:"index" json:"created_at"`
	UpdatedAt    int64      `json:"updated_at"`
	Title        string     `gorm:"type:varchar(200);not null" json:"title"`
	Slug         string     `gorm:"type:varchar(120)" json:"slug"`
	Category     string     `gorm:"type:varchar(30);index:ad_category_status,priority:1" json:"category"`
	Status       string     `gorm:"type:varchar(20);index:ad_category_status,priority:2" json:"status"`
	PriceCents   int64      `json:"price_cents"`
	Currency     string     `gorm:"type:varchar(3)" json:"currency"`
	Location     string     `gorm:"type:varchar(150)" json:"location"`
	Body         string     `gorm:"type:text" json:"body"`
	CoverMediaID *uint64    `json:"cover_media_id"`
	CoverMedia   *MediaFile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"cover_media,omitempty"`
}
