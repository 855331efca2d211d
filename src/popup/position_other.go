//go:build !windows

package popup

import "fyne.io/fyne/v2"

// moveWindow is unsupported here; callers center the window instead.
func moveWindow(fyne.Window, int, int) bool { return false }
