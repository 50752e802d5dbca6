package auth

import (
	"caballos/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	userIdKey  = "id"
	contextKey = "auth_user"
)

type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func (s *Session) LoginUser(user *models.User) error {
	s.Clear()
	s.Set(userIdKey, user.ID)
	return s.Save()
}

func (s *Session) LogoutUser() error {
	s.Delete(userIdKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.Save()
}

// User loads the signed in user with its grants resolved into capabilities.
// The ID is 0 when nobody is signed in.
func (s *Session) User() (user models.User) {
	id, ok := s.Get(userIdKey).(uint64)
	if !ok || id == 0 {
		return
	}
	user, err := models.UserByID(id)
	if err != nil {
		return models.User{}
	}
	return user
}

// CurrentUser resolves the caller once per request, nil for anonymous callers
func CurrentUser(c *gin.Context) *models.User {
	if cached, ok := c.Get(contextKey); ok {
		return cached.(*models.User)
	}
	var result *models.User
	if user := LoadSession(c).User(); user.ID != 0 {
		result = &user
	}
	c.Set(contextKey, result)
	return result
}
