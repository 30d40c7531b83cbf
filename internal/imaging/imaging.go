// Package imaging decodes downloaded page images and normalises them into
// the truecolor representation the PDF writer expects.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// Codec is the image collaborator used by the page downloader.
type Codec interface {
	// Decode returns the image and the registered format name ("jpeg", "png", ...).
	Decode(data []byte) (image.Image, string, error)
	EncodeJPEG(img image.Image, quality int) ([]byte, error)
}

// Standard uses the stdlib decoders plus WebP.
type Standard struct{}

func (Standard) Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	return img, format, nil
}

func (Standard) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// IsTruecolor reports whether img already is an opaque RGB buffer.
func IsTruecolor(img image.Image) bool {
	switch t := img.(type) {
	case *image.YCbCr:
		return true
	case *image.RGBA:
		return t.Opaque()
	default:
		return false
	}
}

// ToRGB returns img unchanged when it is truecolor. Anything else (palette,
// gray, CMYK, images with alpha) is flattened onto white.
func ToRGB(img image.Image) image.Image {
	if IsTruecolor(img) {
		return img
	}

	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)

	return out
}
