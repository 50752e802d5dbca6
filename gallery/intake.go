package gallery

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"caballos/config"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const sniffBytes = 3072

// Candidate is one file offered for upload. Open may be called more than once.
type Candidate struct {
	Name         string
	DeclaredType string
	Size         int64
	Open         func() (io.ReadCloser, error)

	// Set by Intake for accepted files
	MimeType string
}

type Limits struct {
	MaxBytes int64
	// Allowed MIME prefixes, e.g. "image/"
	Allowed []string
	Denied  []string
}

func DefaultLimits() Limits {
	return Limits{
		MaxBytes: config.UPLOAD_MAX_BYTES,
		Allowed:  []string{"image/", "video/"},
		Denied:   []string{"image/svg+xml"},
	}
}

type Verdict struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Accepted bool   `json:"accepted"`
	MimeType string `json:"mime_type,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Intake checks every candidate against the limits. It has no side effects
// besides reading the first bytes of files without a usable declared type.
// The result has one verdict per candidate, in order.
func Intake(candidates []Candidate, limits Limits) []Verdict {
	result := make([]Verdict, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		v := Verdict{Index: i, Name: c.Name}
		mimeType, err := limits.check(c)
		if err != nil {
			v.Error = err.Error()
		} else {
			v.Accepted = true
			v.MimeType = mimeType
			c.MimeType = mimeType
		}
		result[i] = v
	}
	return result
}

func (l Limits) check(c *Candidate) (string, error) {
	if c.Size <= 0 {
		return "", fmt.Errorf("%s is empty", c.Name)
	}
	if l.MaxBytes > 0 && c.Size > l.MaxBytes {
		return "", fmt.Errorf("%s is too large (%s), the limit is %s",
			c.Name, humanize.IBytes(uint64(c.Size)), humanize.IBytes(uint64(l.MaxBytes)))
	}
	mimeType := normalizeType(c.DeclaredType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		sniffed, err := sniff(c)
		if err != nil {
			return "", fmt.Errorf("%s cannot be read: %v", c.Name, err)
		}
		mimeType = sniffed
	}
	if !l.allows(mimeType) {
		return "", fmt.Errorf("%s has an unsupported type %s, only images and videos are allowed", c.Name, mimeType)
	}
	return mimeType, nil
}

func (l Limits) allows(mimeType string) bool {
	for _, d := range l.Denied {
		if mimeType == d {
			return false
		}
	}
	for _, a := range l.Allowed {
		if strings.HasPrefix(mimeType, a) {
			return true
		}
	}
	return false
}

func normalizeType(declared string) string {
	if declared == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func sniff(c *Candidate) (string, error) {
	if c.Open == nil {
		return "", fmt.Errorf("no content")
	}
	r, err := c.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return normalizeType(mimetype.Detect(buf[:n]).String()), nil
}

// FromMultipart turns the "files" of a multipart form into candidates
func FromMultipart(headers []*multipart.FileHeader) []Candidate {
	result := make([]Candidate, 0, len(headers))
	for _, h := range headers {
		header := h
		result = append(result, Candidate{
			Name:         header.Filename,
			DeclaredType: header.Header.Get("Content-Type"),
			Size:         header.Size,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
		})
	}
	return result
}
