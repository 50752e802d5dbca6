package models

const (
	ReportOpen      = "open"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

const (
	TargetThread  = "thread"
	TargetReply   = "reply"
	TargetHorse   = "horse"
	TargetComment = "comment"
	TargetAd      = "ad"
	TargetMedia   = "media"
	TargetAlbum   = "album"
	TargetUser    = "user"
	TargetSetting = "setting"
)

var ReportTargets = []string{TargetThread, TargetReply, TargetHorse, TargetComment, TargetAd, TargetMedia, TargetAlbum}

func ValidReportTarget(target string) bool {
	for _, t := range ReportTargets {
		if t == target {
			return true
		}
	}
	return false
}

type Report struct {
	ID           uint64  `gorm:"primaryKey" json:"id"`
	ReporterID   uint64  `gorm:"not null;index" json:"reporter_id"`
	Reporter     *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reporter,omitempty"`
	CreatedAt    int64   `gorm:"index:report_status_created,priority:2" json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
	TargetType   string  `gorm:"type:varchar(30);index:report_target,priority:1" json:"target_type"`
	TargetID     uint64  `gorm:"index:report_target,priority:2" json:"target_id"`
	Reason       string  `gorm:"type:text" json:"reason"`
	Status       string  `gorm:"type:varchar(20);index:report_status_created,priority:1" json:"status"`
	ResolvedByID *uint64 `json:"resolved_by_id"`
	ResolvedBy   *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"resolved_by,omitempty"`
	Resolution   string  `gorm:"type:text" json:"resolution"`
}
