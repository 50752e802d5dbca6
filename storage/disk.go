package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"caballos/config"
)

type DiskStorage struct {
	Bucket Bucket
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(bucket *Bucket) *DiskStorage {
	return &DiskStorage{
		BasePath: bucket.Path,
		Bucket:   *bucket,
		dirs:     make(map[string]bool, 10),
	}
}

func (s *DiskStorage) GetBucket() *Bucket {
	return &s.Bucket
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

// GetFullPath refuses to leave BasePath
func (s *DiskStorage) GetFullPath(path string) string {
	clean := filepath.Clean("/" + path)
	return filepath.Join(s.BasePath, filepath.FromSlash(clean))
}

func (s *DiskStorage) Save(ctx context.Context, path string, reader io.Reader, mimeType string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fileName := s.GetFullPath(path)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return 0, err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}
	result, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fileName)
	}
	return result, err
}

func (s *DiskStorage) Load(ctx context.Context, path string, writer io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	file, err := os.Open(s.GetFullPath(path))
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(writer, file)
}

func (s *DiskStorage) Serve(path string, request *http.Request, writer http.ResponseWriter) {
	http.ServeFile(writer, request, s.GetFullPath(path))
}

func (s *DiskStorage) Delete(ctx context.Context, path string) error {
	err := os.Remove(s.GetFullPath(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *DiskStorage) PublicURL(path string) string {
	return s.Bucket.PublicURL + "/" + escapePath(path)
}

// SignedURL appends an expiry and a HMAC of "path:expiry", checked by VerifySignature
func (s *DiskStorage) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	query := url.Values{}
	query.Set("expires", expires)
	query.Set("sig", sign(path, expires))
	return s.PublicURL(path) + "?" + query.Encode(), nil
}

func sign(path, expires string) string {
	mac := hmac.New(sha256.New, config.SigningKey())
	mac.Write([]byte(path + ":" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature created by DiskStorage.SignedURL
func VerifySignature(path, expires, sig string, now time.Time) bool {
	until, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || now.Unix() > until {
		return false
	}
	expected, err := hex.DecodeString(sign(path, expires))
	if err != nil {
		return false
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
