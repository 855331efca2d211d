package screenshot

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/kbinani/screenshot"
)

// MinSide is the smallest accepted selection edge, exclusive.
const MinSide = 10

// BBox is a selection in screen pixel coordinates, X1 < X2 and Y1 < Y2.
type BBox struct {
	X1, Y1, X2, Y2 int
}

// FromPoints normalizes a drag from a to b into a bounding box.
func FromPoints(a, b image.Point) BBox {
	box := BBox{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}
	if box.X1 > box.X2 {
		box.X1, box.X2 = box.X2, box.X1
	}
	if box.Y1 > box.Y2 {
		box.Y1, box.Y2 = box.Y2, box.Y1
	}
	return box
}

func (b BBox) Width() int  { return b.X2 - b.X1 }
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Valid reports whether both sides are longer than MinSide.
func (b BBox) Valid() bool { return b.Width() > MinSide && b.Height() > MinSide }

func (b BBox) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// Capture captures the entire virtual screen across all active displays.
// The image keeps screen coordinates as its bounds.
func Capture() (*image.RGBA, error) {
	union, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	// CaptureRect returns a zero based image
	img.Rect = img.Rect.Add(union.Min)
	return img, nil
}

// CapturePrimary captures the primary display. The image keeps screen
// coordinates as its bounds.
func CapturePrimary() (*image.RGBA, error) {
	bounds, err := GetDisplayBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display: %w", err)
	}
	img.Rect = img.Rect.Add(bounds.Min)
	return img, nil
}

// Crop copies the part of a screen image covered by b into a new zero based
// image.
func Crop(src image.Image, b BBox) (*image.RGBA, error) {
	r := b.Rect().Intersect(src.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("selection %v outside captured screen %v", b.Rect(), src.Bounds())
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, nil
}

// GetDisplayBounds returns the bounds of the primary display.
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// PrimaryWidth returns the primary display width, or fallback when no
// display is reported.
func PrimaryWidth(fallback int) int {
	b, err := GetDisplayBounds()
	if err != nil || b.Dx() == 0 {
		return fallback
	}
	return b.Dx()
}
