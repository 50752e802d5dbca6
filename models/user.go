package models

import (
	"errors"
	"strings"

	"caballos/config"
	"caballos/db"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrEmailTaken     = errors.New("email already registered")
)

type User struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"-"`
	Name      string  `gorm:"type:varchar(100)" json:"name"`
	Email     string  `gorm:"type:varchar(150);index:uniq_email,unique" json:"-"`
	Password  string  `gorm:"type:varchar(100)" json:"-"` // bcrypt hash
	Bio       string  `gorm:"type:text" json:"bio"`
	Grants    []Grant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	// Resolved from Grants, see LoadCapabilities
	Caps Capability `gorm:"-" json:"-"`
}

func hashPassword(plainTextPassword string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// UserCreate is the sign up operation
func UserCreate(name, email, plainTextPassword string) (u User, err error) {
	u.Email = strings.ToLower(strings.TrimSpace(email))
	u.Name = strings.TrimSpace(name)
	if u.Password, err = hashPassword(plainTextPassword); err != nil {
		return User{}, err
	}
	var count int64
	if err = db.Instance.Model(&User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, ErrEmailTaken
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		for _, e := range config.PrivilegedEmails() {
			if e == u.Email {
				return tx.Create(&Grant{UserID: u.ID, Role: RoleAdmin}).Error
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return UserByID(u.ID)
}

// UserLogin is the sign in operation
func UserLogin(email, plainTextPassword string) (u User, err error) {
	result := db.Instance.Preload("Grants").First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email)))
	if result.Error != nil {
		return User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plainTextPassword)) != nil {
		return User{}, ErrBadCredentials
	}
	u.LoadCapabilities()
	return u, nil
}

func UserByID(id uint64) (u User, err error) {
	err = db.Instance.Preload("Grants").First(&u, id).Error
	if err == nil {
		u.LoadCapabilities()
	}
	return
}

func UserByEmail(email string) (u User, err error) {
	err = db.Instance.Preload("Grants").First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err == nil {
		u.LoadCapabilities()
	}
	return
}

func (u *User) SetPassword(plainTextPassword string) error {
	hash, err := hashPassword(plainTextPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// LoadCapabilities must be called after Grants were preloaded
func (u *User) LoadCapabilities() {
	u.Caps = CapNone
	for _, grant := range u.Grants {
		u.Caps |= grant.Role.Capabilities()
	}
}

func (u *User) Can(required ...Capability) bool {
	for _, c := range required {
		if u.Caps&c != c {
			return false
		}
	}
	return true
}

func (u *User) Roles() []string {
	roles := []string{}
	for _, grant := range u.Grants {
		roles = append(roles, grant.Role.String())
	}
	return roles
}
