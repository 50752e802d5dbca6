package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Caballo Andaluz Pura Raza", "caballo-andaluz-pura-raza"},
		{"  ¡Ñandú & Potro!  ", "nandu-potro"},
		{"Doma clásica -- 2024", "doma-clasica-2024"},
		{"***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "mi_yegua_2024.jpg", SanitizeFileName("mi yegua 2024.jpg"))
	assert.Equal(t, "_hidden", SanitizeFileName(".hidden"))
	assert.Equal(t, "file", SanitizeFileName(""))
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"doma", "salto"}, SplitTags(" Doma, salto ,,DOMA"))
	assert.Equal(t, "doma,salto", JoinTags([]string{"Doma", "salto", "doma"}))
	assert.Equal(t, []string{}, SplitTags(""))
}

func TestCreateThumb(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		img.Set(x, x%200, color.RGBA{R: 200, A: 255})
	}
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, img))

	var thumb bytes.Buffer
	info, err := CreateThumb(100, 400*200, bytes.NewReader(src.Bytes()), &thumb)
	require.NoError(t, err)
	assert.Equal(t, 400, info.OldX)
	assert.Equal(t, 200, info.OldY)
	assert.Equal(t, 100, info.NewX)
	assert.Equal(t, 50, info.NewY)
	assert.Equal(t, int64(thumb.Len()), info.ThumbSize)

	w, h, err := ImageSize(bytes.NewReader(src.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestCreateThumbRefusesLargeImages(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, image.NewGray(image.Rect(0, 0, 300, 300))))

	var thumb bytes.Buffer
	_, err := CreateThumb(100, 300*300-1, bytes.NewReader(src.Bytes()), &thumb)
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Zero(t, thumb.Len())

	_, err = CreateThumb(100, 0, bytes.NewReader(src.Bytes()), &thumb)
	assert.NoError(t, err, "0 means no limit")
}
