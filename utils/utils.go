package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/nfnt/resize"
	"golang.org/x/text/unicode/norm"
)

// RandSuffix returns a short lowercase token, used to make slugs unique
func RandSuffix() string {
	buf := make([]byte, 4)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	var i big.Int
	return i.SetBytes(buf).Text(36)
}

// Slugify turns "Caballo Andaluz Pura Raza" into "caballo-andaluz-pura-raza".
// Accents are dropped ("Ñandú" -> "nandu").
func Slugify(in string) string {
	var slug strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(in)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining accent, skip
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			slug.WriteRune(r)
			dash = false
		default:
			if !dash && slug.Len() > 0 {
				slug.WriteByte('-')
				dash = true
			}
		}
	}
	result := strings.TrimSuffix(slug.String(), "-")
	if len(result) > 80 {
		result = strings.TrimSuffix(result[:80], "-")
	}
	return result
}

// SanitizeFileName restricts the characters of a file name to [a-zA-Z0-9._-]
func SanitizeFileName(in string) string {
	var name strings.Builder
	for i, c := range in {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			(c == '.' && i > 0) || (c == '-') || (c == '_') {

			name.WriteRune(c)
		} else {
			name.WriteString("_")
		}
	}
	if name.Len() == 0 {
		return "file"
	}
	return name.String()
}

// SplitTags normalises a comma separated list: trimmed, lowercase, no duplicates
func SplitTags(in string) []string {
	return NormalizeTags(strings.Split(in, ","))
}

func NormalizeTags(in []string) []string {
	result := []string{}
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}

func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}

var ErrImageTooLarge = errors.New("image dimensions exceed the decoding limit")

type ImageThumbConverted struct {
	ThumbSize int64
	NewX      int
	NewY      int
	OldX      int
	OldY      int
}

// CreateThumb writes a JPEG thumbnail fitting in size x size. The header is checked
// first, images above maxPixels (0 for no limit) are refused before being decoded.
func CreateThumb(size uint, maxPixels int64, reader io.Reader, writer io.Writer) (result ImageThumbConverted, err error) {
	header := bytes.Buffer{}
	cfg, _, err := image.DecodeConfig(io.TeeReader(reader, &header))
	if err != nil {
		return result, err
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return result, ErrImageTooLarge
	}
	img, _, err := image.Decode(io.MultiReader(&header, reader))
	if err != nil {
		return result, err
	}
	var newBuf bytes.Buffer
	newImage := resize.Thumbnail(size, size, img, resize.Lanczos3)
	if err = jpeg.Encode(&newBuf, newImage, &jpeg.Options{Quality: 90}); err != nil {
		return
	}
	imageRect := newImage.Bounds().Size()
	result.NewX = imageRect.X
	result.NewY = imageRect.Y

	imageRect = img.Bounds().Size()
	result.OldX = imageRect.X
	result.OldY = imageRect.Y

	result.ThumbSize, err = io.Copy(writer, &newBuf)
	return
}

// ImageSize reads only the header of an image
func ImageSize(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
