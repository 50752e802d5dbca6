package handlers

import (
	"net/http"

	"caballos/auth"
	"caballos/models"
	"caballos/revalidate"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type UserCreateRequest struct {
	Name     string `form:"name" json:"name" binding:"required,max=100"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=8"`
}

type UserLoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type UserInfo struct {
	ID    uint64   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Bio   string   `json:"bio"`
	Roles []string `json:"roles"`
	Caps  uint16   `json:"capabilities"`
}

type UserUpdateRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=100"`
	Bio  *string `json:"bio"`
}

func userInfo(u *models.User) UserInfo {
	return UserInfo{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Bio:   u.Bio,
		Roles: u.Roles(),
		Caps:  uint16(u.Caps),
	}
}

func UserSignup(c *gin.Context) {
	if models.Setting("registration_open") != "true" {
		c.JSON(http.StatusForbidden, Response{"registration is closed"})
		return
	}
	postReq := UserCreateRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Default(c.Request.Method, c.ContentType())); err != nil {
		badRequest(c, err)
		return
	}
	user, err := models.UserCreate(postReq.Name, postReq.Email, postReq.Password)
	if err != nil {
		abortWith(c, err)
		return
	}
	if err = auth.LoadSession(c).LoginUser(&user); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, userInfo(&user))
}

func UserSignin(c *gin.Context) {
	postReq := UserLoginRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Default(c.Request.Method, c.ContentType())); err != nil {
		badRequest(c, err)
		return
	}
	user, err := models.UserLogin(postReq.Email, postReq.Password)
	if err != nil {
		abortWith(c, err)
		return
	}
	if err = auth.LoadSession(c).LoginUser(&user); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, userInfo(&user))
}

func UserSignout(c *gin.Context) {
	if err := auth.LoadSession(c).LogoutUser(); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func UserMe(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, userInfo(user))
}

func UserUpdate(c *gin.Context, user *models.User) {
	req := UserUpdateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Bio != nil {
		changes["bio"] = *req.Bio
	}
	if len(changes) > 0 {
		if err := dbFor(c).Model(user).Updates(changes).Error; err != nil {
			abortWith(c, err)
			return
		}
	}
	revalidate.Paths(revalidate.ProfilePaths(user.ID)...)
	updated, err := models.UserByID(user.ID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, userInfo(&updated))
}
