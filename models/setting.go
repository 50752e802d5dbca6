package models

import (
	"caballos/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiteSetting is a plain key/value pair, edited from the admin dashboard
type SiteSetting struct {
	Key       string `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

var DefaultSettings = map[string]string{
	"site_title":        "Hablando de Caballos",
	"site_tagline":      "La comunidad ecuestre",
	"registration_open": "true",
	"market_enabled":    "true",
	"announcement":      "",
}

func Settings() (map[string]string, error) {
	result := map[string]string{}
	for k, v := range DefaultSettings {
		result[k] = v
	}
	rows := []SiteSetting{}
	if err := db.Instance.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, s := range rows {
		result[s.Key] = s.Value
	}
	return result, nil
}

func Setting(key string) string {
	s := SiteSetting{}
	if db.Instance.Where("`key` = ?", key).Limit(1).Find(&s).Error != nil || s.Key == "" {
		return DefaultSettings[key]
	}
	return s.Value
}

func SaveSettings(tx *gorm.DB, values map[string]string) error {
	for k, v := range values {
		s := SiteSetting{Key: k, Value: v}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&s).Error
		if err != nil {
			return err
		}
	}
	return nil
}
