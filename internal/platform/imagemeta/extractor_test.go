package imagemeta

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	default:
		t.Fatalf("unknown format %q", format)
	}
	return buf.Bytes()
}

func TestDecoderExtractor_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   []byte
		width  int
		height int
		format string
	}{
		{name: "png_1x1", data: encode(t, "png", 1, 1), width: 1, height: 1, format: "png"},
		{name: "png_wide", data: encode(t, "png", 40, 3), width: 40, height: 3, format: "png"},
		{name: "jpeg", data: encode(t, "jpeg", 16, 9), width: 16, height: 9, format: "jpeg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			meta, err := NewExtractor().Extract(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.width, meta.Width)
			assert.Equal(t, tc.height, meta.Height)
			assert.Equal(t, tc.format, meta.Format)
			assert.Equal(t, int64(len(tc.data)), meta.Size)
		})
	}
}

func TestDecoderExtractor_InvalidImage(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().Extract([]byte("This is not an image"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	assert.True(t, domain.IsValidationError(err))
}
