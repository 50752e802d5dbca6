package storage

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Storage struct {
	Bucket   Bucket
	s3Client *s3.S3
}

func NewS3Storage(bucket *Bucket) (*S3Storage, error) {
	svc, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{
		Bucket:   *bucket,
		s3Client: svc,
	}, nil
}

func (s *S3Storage) GetBucket() *Bucket {
	return &s.Bucket
}

func (s *S3Storage) Save(ctx context.Context, path string, reader io.Reader, mimeType string) (int64, error) {
	counter := &countingReader{Reader: reader}
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	input := s3manager.UploadInput{
		Bucket:      &s.Bucket.Name,
		Key:         aws.String(s.Bucket.GetRemotePath(path)),
		ContentType: &mimeType,
		Body:        counter,
	}
	_, err := uploader.UploadWithContext(ctx, &input)
	return counter.n, err
}

func (s *S3Storage) Load(ctx context.Context, path string, writer io.Writer) (int64, error) {
	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(path)),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(writer, resp.Body)
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(path)),
	})
	return err
}

func (s *S3Storage) PublicURL(path string) string {
	if s.Bucket.PublicURL != "" {
		return s.Bucket.PublicURL + "/" + escapePath(s.Bucket.GetRemotePath(path))
	}
	return "https://" + s.Bucket.Name + ".s3." + s.Bucket.Region + ".amazonaws.com/" + escapePath(s.Bucket.GetRemotePath(path))
}

func (s *S3Storage) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(path)),
	})
	req.SetContext(ctx)
	return req.Presign(ttl)
}

// Serve redirects to a short lived presigned URL
func (s *S3Storage) Serve(path string, request *http.Request, writer http.ResponseWriter) {
	url, err := s.SignedURL(request.Context(), path, time.Hour)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(writer, request, url, http.StatusTemporaryRedirect)
}

type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n += int64(n)
	return n, err
}
