//go:build windows

package popup

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procSetWindowPos = user32.NewProc("SetWindowPos")
)

const (
	swpNoSize     = 0x0001
	swpNoActivate = 0x0010
	swpShowWindow = 0x0040
)

// HWND_TOPMOST is (HWND)-1.
var hwndTopmost = ^uintptr(0)

// moveWindow places w at screen coordinates x, y and keeps it above other
// windows.
func moveWindow(w fyne.Window, x, y int) bool {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return false
	}
	moved := false
	nw.RunNative(func(ctx any) {
		wc, ok := ctx.(driver.WindowsWindowContext)
		if !ok || wc.HWND == 0 {
			return
		}
		ret, _, err := procSetWindowPos.Call(wc.HWND, hwndTopmost, uintptr(x), uintptr(y), 0, 0,
			swpNoSize|swpNoActivate|swpShowWindow)
		if ret == 0 {
			log.Printf("Popup: SetWindowPos failed: %v", err)
			return
		}
		moved = true
	})
	return moved
}
