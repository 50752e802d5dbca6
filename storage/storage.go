package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"caballos/logging"
	"caballos/utils"
)

var ErrUnknownStorage = errors.New("unknown storage type")

// SignedURLFor is how long private media URLs stay valid
const SignedURLFor = 7 * 24 * time.Hour

type StorageAPI interface {
	Save(ctx context.Context, path string, reader io.Reader, mimeType string) (int64, error)
	Load(ctx context.Context, path string, writer io.Writer) (int64, error)
	Delete(ctx context.Context, path string) error
	// PublicURL does not check anything, callers decide if the object is public
	PublicURL(path string) string
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	Serve(path string, request *http.Request, writer http.ResponseWriter)
	GetBucket() *Bucket
}

var defaultStorage StorageAPI

func Init() error {
	bucket := BucketFromConfig()
	storage, err := New(&bucket)
	if err != nil {
		return err
	}
	logging.L.Infow("storage ready", "type", bucket.StorageType.String(), "name", bucket.Name, "path", bucket.Path)
	defaultStorage = storage
	return nil
}

func New(bucket *Bucket) (StorageAPI, error) {
	switch bucket.StorageType {
	case StorageTypeFile:
		if err := bucket.Create(); err != nil {
			return nil, err
		}
		return NewDiskStorage(bucket), nil
	case StorageTypeS3:
		return NewS3Storage(bucket)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownStorage, bucket.StorageType)
}

func GetDefaultStorage() StorageAPI {
	if defaultStorage == nil {
		panic("no storage available")
	}
	return defaultStorage
}

// SetDefaultStorage is used by tests and the CLI
func SetDefaultStorage(s StorageAPI) {
	defaultStorage = s
}

func cleanSubpath(subpath string) string {
	parts := []string{}
	for _, p := range strings.Split(subpath, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, utils.SanitizeFileName(p))
		}
	}
	return strings.Join(parts, "/")
}

// ObjectPath builds "{category}/{ownerID}/{subpath}/{timestamp}-{filename}".
// The subpath is optional; every path segment is sanitized.
func ObjectPath(category string, ownerID uint64, subpath string, now time.Time, fileName string) string {
	name := strconv.FormatInt(now.UnixMilli(), 10) + "-" + utils.SanitizeFileName(fileName)
	parts := []string{utils.SanitizeFileName(category), strconv.FormatUint(ownerID, 10)}
	if sub := cleanSubpath(subpath); sub != "" {
		parts = append(parts, sub)
	}
	return strings.Join(append(parts, name), "/")
}

// ThumbPath is "{category}/{ownerID}/thumbs/{timestamp}-{base}.jpg" for the given object path
func ThumbPath(category string, ownerID uint64, objectPath string) string {
	base := path.Base(objectPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	return utils.SanitizeFileName(category) + "/" + strconv.FormatUint(ownerID, 10) + "/thumbs/" + base + ".jpg"
}
