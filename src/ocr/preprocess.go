package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	// Captures narrower than this are upscaled before the full pass.
	minFullWidth  = 300
	upscaleFactor = 2

	// The quick detection pass never sees more than this many pixels across.
	maxProbeWidth = 800
)

// prepareFull upscales small captures; tesseract loses small glyphs otherwise.
func prepareFull(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() >= minFullWidth || b.Dx() == 0 {
		return img
	}
	return scale(img, b.Dx()*upscaleFactor, b.Dy()*upscaleFactor)
}

// prepareProbe shrinks wide captures for the low-cost detection pass.
func prepareProbe(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxProbeWidth {
		return img
	}
	h := b.Dy() * maxProbeWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	return scale(img, maxProbeWidth, h)
}

func scale(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
