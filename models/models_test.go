package models

import (
	"testing"

	"caballos/config"
	"caballos/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	mem, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, Migrate(mem))
	db.Instance = mem
	t.Cleanup(func() {
		if sqlDB, err := mem.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		can  []Capability
		not  []Capability
	}{
		{RoleAdmin, []Capability{CapAdmin, CapModerateMedia, CapManageUsers, CapManageSettings}, nil},
		{RoleModerator, []Capability{CapModerateMedia, CapModerateContent}, []Capability{CapAdmin, CapManageUsers}},
		{RoleNone, nil, []Capability{CapModerateMedia}},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			u := User{Grants: []Grant{{Role: tt.role}}}
			u.LoadCapabilities()
			for _, c := range tt.can {
				assert.True(t, u.Can(c), "expected capability %d", c)
			}
			for _, c := range tt.not {
				assert.False(t, u.Can(c), "unexpected capability %d", c)
			}
		})
	}
	assert.Equal(t, RoleModerator, RoleFromString("moderator"))
	assert.Equal(t, RoleNone, RoleFromString("root"))
}

func TestUserCreateAndLogin(t *testing.T) {
	setupDB(t)
	config.PRIVILEGED_EMAILS = "boss@example.com"
	t.Cleanup(func() { config.PRIVILEGED_EMAILS = "" })

	u, err := UserCreate("Ana", " Ana@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "secret123", u.Password)
	assert.False(t, u.Can(CapModerateMedia))

	_, err = UserCreate("Other", "ana@example.com", "whatever")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = UserLogin("ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	logged, err := UserLogin("ANA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	boss, err := UserCreate("Boss", "boss@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, boss.Can(CapAdmin))
	assert.Equal(t, []string{"admin"}, boss.Roles())
}

func TestBootstrapPrivilegedAndGrants(t *testing.T) {
	setupDB(t)
	u, err := UserCreate("Luis", "luis@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, BootstrapPrivileged([]string{"luis@example.com", "nobody@example.com"}))
	// twice is fine
	require.NoError(t, BootstrapPrivileged([]string{"luis@example.com"}))

	u, err = UserByID(u.ID)
	require.NoError(t, err)
	assert.True(t, u.Can(CapAdmin))
	assert.Len(t, u.Grants, 1)

	n, err := RevokeRole(u.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	u, err = UserByID(u.ID)
	require.NoError(t, err)
	assert.False(t, u.Can(CapAdmin))
}

func TestVisibility(t *testing.T) {
	owner := &User{ID: 1}
	stranger := &User{ID: 2}
	mod := &User{ID: 3, Caps: RoleModerator.Capabilities()}
	admin := &User{ID: 4, Caps: RoleAdmin.Capabilities()}

	private := MediaFile{OwnerID: 1}
	assert.True(t, private.VisibleTo(owner))
	assert.False(t, private.VisibleTo(stranger))
	assert.False(t, private.VisibleTo(nil))
	assert.True(t, private.VisibleTo(mod))
	assert.False(t, private.EditableBy(stranger))

	album := MediaAlbum{CreatedByID: 1, IsPublic: true}
	assert.True(t, album.VisibleTo(nil))
	assert.True(t, album.CanMutateMembers(owner))
	assert.True(t, album.CanMutateMembers(mod))
	assert.False(t, album.CanMutateMembers(stranger))
	assert.False(t, album.CanDelete(mod))
	assert.True(t, album.CanDelete(admin))
	assert.True(t, album.CanDelete(owner))
}

func TestPaginate(t *testing.T) {
	setupDB(t)
	u, err := UserCreate("Eva", "eva@example.com", "secret123")
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		require.NoError(t, db.Instance.Create(&Thread{AuthorID: u.ID, Title: "t", Category: "general"}).Error)
	}
	page, err := Paginate[Thread](db.Instance.Model(&Thread{}).Order("id"), Page{Page: 2, PerPage: 10}, "Author")
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, uint64(11), page.Items[0].ID)
	require.NotNil(t, page.Items[0].Author)

	p := Page{PerPage: 1000}
	p.Normalize()
	assert.Equal(t, Page{Page: 1, PerPage: MaxPerPage}, p)
}

func TestSettings(t *testing.T) {
	setupDB(t)
	assert.Equal(t, "true", Setting("registration_open"))
	require.NoError(t, SaveSettings(db.Instance, map[string]string{"registration_open": "false"}))
	require.NoError(t, SaveSettings(db.Instance, map[string]string{"registration_open": "false", "announcement": "hola"}))
	all, err := Settings()
	require.NoError(t, err)
	assert.Equal(t, "false", all["registration_open"])
	assert.Equal(t, "hola", all["announcement"])
	assert.Equal(t, "Hablando de Caballos", all["site_title"])
}

func TestMaxOrderIndex(t *testing.T) {
	setupDB(t)
	u, err := UserCreate("Eva", "eva@example.com", "secret123")
	require.NoError(t, err)
	album := MediaAlbum{CreatedByID: u.ID, Title: "A"}
	require.NoError(t, db.Instance.Create(&album).Error)
	max, err := MaxOrderIndex(db.Instance, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	for i := 1; i <= 3; i++ {
		m := MediaFile{OwnerID: u.ID, Name: "x.jpg"}
		require.NoError(t, db.Instance.Create(&m).Error)
		require.NoError(t, db.Instance.Create(&AlbumMedia{AlbumID: album.ID, MediaID: m.ID, OrderIndex: int64(i * 10)}).Error)
	}
	max, err = MaxOrderIndex(db.Instance, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), max)
}
