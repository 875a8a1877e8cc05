// pkg/enhance/enhance.go

// Package enhance applies the product's fixed photo enhancement: a
// bounded downscale, a brightness and saturation lift, and an unsharp
// mask, re-encoded as a quality-90 JPEG. Every image gets the same
// parameters; there is no per-image adaptivity.
package enhance

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	"github.com/disintegration/gift"

	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds both output axes. Smaller images are never
	// upscaled.
	MaxDimension = 2048

	JPEGQuality = 90

	brightnessPercent = 10
	saturationPercent = 15
	sharpenSigma      = 1.0
	sharpenAmount     = 1.0
	sharpenThreshold  = 0.05
)

var pipeline = gift.New(
	gift.ResizeToFit(MaxDimension, MaxDimension, gift.LanczosResampling),
	gift.Brightness(brightnessPercent),
	gift.Saturation(saturationPercent),
	gift.UnsharpMask(sharpenSigma, sharpenAmount, sharpenThreshold),
)

// Image decodes src (JPEG, PNG or WebP), runs the enhancement pipeline
// and returns the result encoded as JPEG.
func Image(src []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(pipeline.Bounds(img.Bounds()))
	pipeline.Draw(dst, img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

// SniffImage checks the leading bytes of data against the accepted
// image content types.
func SniffImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty file")
	}

	probe := data
	if len(probe) > 512 {
		probe = probe[:512]
	}

	contentType := http.DetectContentType(probe)
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return nil
	}
	return fmt.Errorf("invalid file type: %s, only JPEG, PNG and WebP allowed", contentType)
}
