// Package imagemeta reports dimensions and format of uploaded images without
// decoding their pixel data.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/phrazzld/enhance-api/internal/domain"
)

// Extractor reads image metadata from raw bytes.
type Extractor interface {
	Extract(data []byte) (domain.ImageMetadata, error)
}

// DecoderExtractor implements Extractor with the registered image decoders.
// Only the header is parsed, so large uploads are cheap to inspect.
type DecoderExtractor struct{}

// NewExtractor returns the default Extractor.
func NewExtractor() *DecoderExtractor {
	return &DecoderExtractor{}
}

// Extract returns width, height, format and byte size of data.
// Returns an error wrapping domain.ErrInvalidImage when the header cannot be parsed.
func (DecoderExtractor) Extract(data []byte) (domain.ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageMetadata{}, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	return domain.ImageMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Size:   int64(len(data)),
	}, nil
}

var _ Extractor = DecoderExtractor{}
