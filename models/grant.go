package models

import (
	"caballos/db"

	"gorm.io/gorm/clause"
)

type Role uint8

const (
	RoleNone      Role = 0
	RoleAdmin     Role = 1
	RoleModerator Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	}
	return "none"
}

func RoleFromString(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "moderator":
		return RoleModerator
	}
	return RoleNone
}

// Capability is a bit set, resolved once per request from the user's grants
type Capability uint16

const (
	CapModerateMedia   Capability = 1 << iota // add/remove/reorder any album, edit any media
	CapModerateContent                        // threads, horses, ads, reports
	CapManageUsers                            // grants
	CapManageSettings                         // site settings
	CapAdmin                                  // delete any album, everything else

	CapNone Capability = 0
)

func (r Role) Capabilities() Capability {
	switch r {
	case RoleAdmin:
		return CapModerateMedia | CapModerateContent | CapManageUsers | CapManageSettings | CapAdmin
	case RoleModerator:
		return CapModerateMedia | CapModerateContent
	}
	return CapNone
}

type Grant struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	CreatedAt int64   `json:"created_at"`
	GrantorID *uint64 `json:"grantor_id"`
	Grantor   *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"grantor,omitempty"`
	UserID    uint64  `gorm:"index:grant_user_role,unique" json:"user_id"`
	User      *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Role      Role    `gorm:"index:grant_user_role,unique" json:"role"`
}

// GrantRole is idempotent
func GrantRole(userID uint64, role Role, grantorID *uint64) error {
	grant := Grant{
		UserID:    userID,
		Role:      role,
		GrantorID: grantorID,
	}
	return db.Instance.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
}

func RevokeRole(userID uint64, role Role) (int64, error) {
	result := db.Instance.Where("user_id = ? AND role = ?", userID, role).Delete(&Grant{})
	return result.RowsAffected, result.Error
}

// BootstrapPrivileged makes sure the configured emails have admin grants.
// Users signing up later with one of those emails get it on creation.
func BootstrapPrivileged(emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	users := []User{}
	if err := db.Instance.Where("email IN ?", emails).Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		if err := GrantRole(u.ID, RoleAdmin, nil); err != nil {
			return err
		}
	}
	return nil
}
