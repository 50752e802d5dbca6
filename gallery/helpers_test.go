package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"caballos/db"
	"caballos/models"
	"caballos/revalidate"
	"caballos/storage"

	"github.com/stretchr/testify/require"
)

// countingStorage records every call reaching the object store
type countingStorage struct {
	storage.StorageAPI
	saves   atomic.Int64
	deletes atomic.Int64
	failOn  string
	// SignedURL fails when set
	noSigning bool
}

func (s *countingStorage) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if s.noSigning {
		return "", errors.New("presign: credentials expired")
	}
	return s.StorageAPI.SignedURL(ctx, path, ttl)
}

func (s *countingStorage) Save(ctx context.Context, path string, reader io.Reader, mimeType string) (int64, error) {
	s.saves.Add(1)
	if s.failOn != "" && strings.Contains(path, s.failOn) {
		return 0, io.ErrShortWrite
	}
	return s.StorageAPI.Save(ctx, path, reader, mimeType)
}

func (s *countingStorage) Delete(ctx context.Context, path string) error {
	s.deletes.Add(1)
	return s.StorageAPI.Delete(ctx, path)
}

func setup(t *testing.T) *countingStorage {
	t.Helper()
	mem, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, models.Migrate(mem))
	db.Instance = mem
	t.Cleanup(func() {
		if sqlDB, err := mem.DB(); err == nil {
			sqlDB.Close()
		}
	})
	revalidate.Reset()
	disk := storage.NewDiskStorage(&storage.Bucket{Path: t.TempDir(), PublicURL: "/files"})
	return &countingStorage{StorageAPI: disk}
}

func newUser(t *testing.T, name string, roles ...models.Role) *models.User {
	t.Helper()
	u, err := models.UserCreate(name, name+"@example.com", "secret123")
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, models.GrantRole(u.ID, r, nil))
	}
	u, err = models.UserByID(u.ID)
	require.NoError(t, err)
	return &u
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func memCandidate(name, declared string, data []byte) Candidate {
	return Candidate{
		Name:         name,
		DeclaredType: declared,
		Size:         int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// sizedCandidate claims a size without holding the bytes
func sizedCandidate(name, declared string, size int64) Candidate {
	return Candidate{
		Name:         name,
		DeclaredType: declared,
		Size:         size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(make([]byte, 16))), nil
		},
	}
}

// uploadFiles creates n public image files owned by u
func uploadFiles(t *testing.T, store storage.StorageAPI, u *models.User, n int) []uint64 {
	t.Helper()
	candidates := []Candidate{}
	for i := 0; i < n; i++ {
		candidates = append(candidates, memCandidate("foto.png", "image/png", pngBytes(t, 20, 10)))
	}
	result, err := Submit(context.Background(), store, u, candidates, SubmitOptions{IsPublic: true}, DefaultLimits())
	require.NoError(t, err)
	ids := result.Completed()
	require.Len(t, ids, n)
	return ids
}

func orderOf(t *testing.T, albumID uint64) map[uint64]int64 {
	t.Helper()
	rows := []models.AlbumMedia{}
	require.NoError(t, db.Instance.Where("album_id = ?", albumID).Find(&rows).Error)
	result := map[uint64]int64{}
	for _, r := range rows {
		result[r.MediaID] = r.OrderIndex
	}
	return result
}

func countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Instance.Model(model).Count(&n).Error)
	return n
}
