package storage

import (
	"os"
	"strings"

	"caballos/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

func (t StorageType) String() string {
	if t == StorageTypeS3 {
		return "s3"
	}
	return "disk"
}

// Bucket describes where media objects live
type Bucket struct {
	Name        string // S3 bucket name, empty for disk
	StorageType StorageType
	Path        string // Directory on a drive or a prefix in a S3 bucket
	Region      string
	Endpoint    string
	AuthDetails string // In case of S3 bucket - "key:secret", empty uses the default AWS chain
	PublicURL   string // Base URL objects are publicly reachable at
}

func BucketFromConfig() Bucket {
	if strings.ToLower(config.STORAGE_TYPE) == "s3" {
		b := Bucket{
			Name:        config.S3_BUCKET,
			StorageType: StorageTypeS3,
			Region:      config.S3_REGION,
			Endpoint:    config.S3_ENDPOINT,
			PublicURL:   config.S3_PUBLIC_URL,
		}
		if config.S3_KEY != "" {
			b.AuthDetails = config.S3_KEY + ":" + config.S3_SECRET
		}
		return b
	}
	return Bucket{
		StorageType: StorageTypeFile,
		Path:        config.STORAGE_DIR,
		PublicURL:   strings.TrimRight(config.PUBLIC_BASE_URL, "/") + "/files",
	}
}

// Create pre-creates the base directory of disk buckets
func (b *Bucket) Create() error {
	if b.StorageType == StorageTypeFile {
		return os.MkdirAll(b.Path, 0777)
	}
	return nil
}

func (b *Bucket) GetRemotePath(path string) string {
	if b.Path == "" {
		return path
	}
	return b.Path + "/" + path
}

func (b *Bucket) CreateSVC() (*s3.S3, error) {
	cfg := aws.NewConfig().WithRegion(b.Region)
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	if key, secret, ok := strings.Cut(b.AuthDetails, ":"); ok {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(key, secret, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}
