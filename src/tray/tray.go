// Package tray exposes the resident's system tray menu.
package tray

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Actions are the callbacks behind the menu items. Nil actions hide their item.
type Actions struct {
	Capture func()
	Toggle  func()
	Quit    func()
}

// Tray owns the menu so the status line can be updated.
type Tray struct {
	desk   desktop.App
	menu   *fyne.Menu
	status *fyne.MenuItem
}

// Setup installs the tray menu. It returns nil when the platform has no
// system tray.
func Setup(app fyne.App, actions Actions) *Tray {
	desk, ok := app.(desktop.App)
	if !ok {
		log.Printf("Tray: system tray not supported on this platform")
		return nil
	}

	t := &Tray{desk: desk, status: newStatus()}
	t.menu = fyne.NewMenu("Screen Translate", buildItems(t.status, actions)...)
	desk.SetSystemTrayMenu(t.menu)
	desk.SetSystemTrayIcon(Icon)
	return t
}

func newStatus() *fyne.MenuItem {
	status := fyne.NewMenuItem("Screen Translate", nil)
	status.Disabled = true
	return status
}

func buildItems(status *fyne.MenuItem, actions Actions) []*fyne.MenuItem {
	items := []*fyne.MenuItem{status, fyne.NewMenuItemSeparator()}
	if actions.Capture != nil {
		items = append(items, fyne.NewMenuItem("Translate region", actions.Capture))
	}
	if actions.Toggle != nil {
		items = append(items, fyne.NewMenuItem("Switch mode", actions.Toggle))
	}
	if actions.Quit != nil {
		quit := fyne.NewMenuItem("Quit", actions.Quit)
		quit.IsQuit = true
		items = append(items, fyne.NewMenuItemSeparator(), quit)
	}
	return items
}

// SetStatus updates the status line at the top of the menu. Safe from any
// goroutine.
func (t *Tray) SetStatus(text string) {
	if t == nil {
		return
	}
	fyne.Do(func() {
		t.status.Label = text
		t.menu.Refresh()
	})
}
