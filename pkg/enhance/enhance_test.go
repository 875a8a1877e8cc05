package enhance

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{200, uint8(x % 256), uint8(y % 256), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestImageProducesValidJPEG(t *testing.T) {
	src := pngBytes(t, 64, 48)

	out, err := Image(src)
	if err != nil {
		t.Fatalf("Image returned error: %v", err)
	}
	if bytes.Equal(out, src) {
		t.Error("expected output to differ from input")
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 48 {
		t.Errorf("small image should not be resized, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestImageDownscalesLargeInput(t *testing.T) {
	src := jpegBytes(t, 3000, 1500)

	out, err := Image(src)
	if err != nil {
		t.Fatalf("Image returned error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		t.Errorf("output exceeds bounds: %dx%d", bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() != 2048 || bounds.Dy() != 1024 {
		t.Errorf("expected 2048x1024 (aspect preserved), got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestImageRejectsGarbage(t *testing.T) {
	if _, err := Image([]byte("definitely not an image")); err == nil {
		t.Error("expected error for non-image input")
	}
	if _, err := Image(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestImageIsDeterministic(t *testing.T) {
	src := pngBytes(t, 100, 100)

	first, err := Image(src)
	if err != nil {
		t.Fatalf("Image returned error: %v", err)
	}
	second, err := Image(src)
	if err != nil {
		t.Fatalf("Image returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical output for identical input")
	}
}

func TestSniffImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"png", pngBytes(t, 8, 8), false},
		{"jpeg", jpegBytes(t, 8, 8), false},
		{"text", []byte("hello world, this is clearly not a picture"), true},
		{"empty", nil, true},
		{"zip header", []byte("PK\x03\x04 something"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SniffImage(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("SniffImage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
