// Package imageprep normalizes user images before they are uploaded for vision.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds both sides of a normalized image.
	MaxDimension = 1024

	// JPEGQuality is the encoder quality of normalized images.
	JPEGQuality = 85

	// OutputMIMEType is the type of every normalized image.
	OutputMIMEType = "image/jpeg"

	// MaxPixels bounds the decoded size of a source image, checked from its header.
	MaxPixels = 40_000_000
)

var (
	// ErrUnsupportedImage is returned for data no registered decoder understands.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrImageTooLarge is returned when the source declares more than MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// Normalize decodes a PNG, JPEG, GIF or WebP image, flattens it onto white,
// scales it to fit MaxDimension and re-encodes it as JPEG.
// It returns the encoded bytes and the detected source format.
func Normalize(r io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedImage
		}
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedImage
		}
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// transparent regions become white instead of black in the JPEG
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), format, nil
}

// fit scales w x h down to fit inside max x max, keeping the aspect ratio.
func fit(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
