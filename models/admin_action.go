package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

const (
	ActionAlbumUpdate       = "album.update"
	ActionAlbumDelete       = "album.delete"
	ActionAlbumMediaAdd     = "album.media_add"
	ActionAlbumMediaRemove  = "album.media_remove"
	ActionAlbumMediaReorder = "album.media_reorder"
	ActionMediaDelete       = "media.delete"
	ActionReportResolve     = "report.resolve"
	ActionContentRemove     = "content.remove"
	ActionGrantAdd          = "grant.add"
	ActionGrantRevoke       = "grant.revoke"
	ActionSettingsUpdate    = "settings.update"
	ActionThreadModerate    = "thread.moderate"
	ActionAdModerate        = "ad.moderate"
)

// AdminAction is append-only, nothing updates or deletes these rows
type AdminAction struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	CreatedAt  int64  `gorm:"index" json:"created_at"`
	ActorID    uint64 `gorm:"index" json:"actor_id"`
	Action     string `gorm:"type:varchar(60);index" json:"action"`
	TargetType string `gorm:"type:varchar(30)" json:"target_type"`
	TargetID   uint64 `json:"target_id"`
	Details    string `gorm:"type:text" json:"details"` // JSON
}

// LogAdminAction should be called with the transaction of the mutation it records
func LogAdminAction(tx *gorm.DB, actorID uint64, action, targetType string, targetID uint64, details any) error {
	entry := AdminAction{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return err
		}
		entry.Details = string(data)
	}
	return tx.Create(&entry).Error
}
