package ioutils

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageService provides image processing operations for cover art.
//
// ImageService is used to turn the cover embedded in an audio file into a
// small PNG thumbnail:
//
//	svc := NewImageService()
//
//	img, err := svc.Decode(tags.Cover)
//	thumb := svc.ResizeToBound(img, 128, 128)
//	data, err := svc.EncodePNG(thumb)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Decode decodes JPEG, PNG, GIF or WebP image data.
func (s *ImageService) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// ResizeToBound scales an image to fit within maxWidth x maxHeight.
//
// The aspect ratio is preserved and images already inside the bound are
// copied at their original size, never upscaled. The Catmull-Rom kernel is
// used for high-quality downsampling.
//
// Example:
//
//	// A 1500x1000 image becomes 128x85
//	// A 100x60 image remains 100x60
//	thumb := svc.ResizeToBound(img, 128, 128)
func (s *ImageService) ResizeToBound(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

// EncodePNG encodes an image as PNG.
func (s *ImageService) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FitWithin returns the largest dimensions not exceeding the bound that keep
// the width/height ratio. Dimensions are never scaled up and never drop
// below 1 pixel.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		// Width is the limiting factor
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	return max(width, 1), max(height, 1)
}
