//go:build !windows

package overlay

import (
	"image"

	"fyne.io/fyne/v2"

	"screen-translate/src/screenshot"
)

// captureScreen freezes the primary display; a full screen window cannot be
// stretched over several monitors here.
var captureScreen = screenshot.CapturePrimary

func spanWindow(fyne.Window, image.Rectangle) bool { return false }
