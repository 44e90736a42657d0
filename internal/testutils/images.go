package testutils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureImage draws a small gradient so encoders produce non-trivial output.
func fixtureImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / max(width, 1)),
				G: uint8((y * 255) / max(height, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// CreatePNG returns an encoded PNG of the given dimensions.
func CreatePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, fixtureImage(width, height)), "Failed to encode PNG fixture")
	return buf.Bytes()
}

// CreateJPEG returns an encoded JPEG of the given dimensions.
func CreateJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, fixtureImage(width, height), nil), "Failed to encode JPEG fixture")
	return buf.Bytes()
}
