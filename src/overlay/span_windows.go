//go:build windows

package overlay

import (
	"image"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"golang.org/x/sys/windows"

	"screen-translate/src/screenshot"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procSetWindowPos = user32.NewProc("SetWindowPos")
)

const swpShowWindow = 0x0040

// HWND_TOPMOST is (HWND)-1.
var hwndTopmost = ^uintptr(0)

// captureScreen freezes the whole virtual desktop.
var captureScreen = screenshot.Capture

// spanWindow stretches w over r, given in physical screen pixels, and keeps
// it above other windows.
func spanWindow(w fyne.Window, r image.Rectangle) bool {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return false
	}
	placed := false
	nw.RunNative(func(ctx any) {
		wc, ok := ctx.(driver.WindowsWindowContext)
		if !ok || wc.HWND == 0 {
			return
		}
		x, y := int32(r.Min.X), int32(r.Min.Y)
		ret, _, err := procSetWindowPos.Call(wc.HWND, hwndTopmost,
			uintptr(x), uintptr(y), uintptr(r.Dx()), uintptr(r.Dy()), swpShowWindow)
		if ret == 0 {
			log.Printf("Overlay: SetWindowPos failed: %v", err)
			return
		}
		placed = true
	})
	if placed {
		log.Printf("Overlay: selector spans %v", r)
	}
	return placed
}
