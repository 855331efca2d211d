// Package popup renders translation results and short notices in borderless
// always-on-top windows. It implements session.Display.
package popup

import (
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screen-translate/src/logutil"
	"screen-translate/src/session"
)

const (
	DefaultMessageTimeout = 3 * time.Second
	messageWidth          = 320
	messageHeight         = 80
)

// Display owns the popup windows of one fyne application.
type Display struct {
	app            fyne.App
	messageTimeout time.Duration

	mu   sync.Mutex
	open map[fyne.Window]struct{}
}

func New(app fyne.App) *Display {
	return &Display{
		app:            app,
		messageTimeout: DefaultMessageTimeout,
		open:           make(map[fyne.Window]struct{}),
	}
}

// ShowResult opens the result overlay at r's placement. The overlay closes
// after r.Timeout, on Escape, or on its close button, whichever comes first.
func (d *Display) ShowResult(r session.Result) {
	log.Printf("Popup: result at %d,%d (%s): %s", r.X, r.Y, r.Mode, logutil.Preview(r.TranslatedText, 60))
	fyne.Do(func() {
		w := d.newWindow("Translation")
		dismiss := d.dismisser(w)
		w.SetContent(resultContent(r, dismiss))
		w.Resize(fyne.NewSize(float32(r.Width), float32(r.Height)))
		d.present(w, r.X, r.Y, dismiss)
		d.expire(r.Timeout, dismiss)
	})
}

// ShowError opens a short-lived notice with message.
func (d *Display) ShowError(message string) {
	log.Printf("Popup: error notice: %s", message)
	d.showMessage(message)
}

// ShowInfo opens a short-lived notice, used for mode changes.
func (d *Display) ShowInfo(message string) {
	log.Printf("Popup: notice: %s", message)
	d.showMessage(message)
}

func (d *Display) showMessage(message string) {
	fyne.Do(func() {
		w := d.newWindow("Screen Translate")
		dismiss := d.dismisser(w)
		w.SetContent(messageContent(message, dismiss))
		w.Resize(fyne.NewSize(messageWidth, messageHeight))
		w.CenterOnScreen()
		d.present(w, -1, -1, dismiss)
		d.expire(d.messageTimeout, dismiss)
	})
}

// Open returns the number of popups currently shown.
func (d *Display) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

// CloseAll dismisses every open popup.
func (d *Display) CloseAll() {
	d.mu.Lock()
	windows := make([]fyne.Window, 0, len(d.open))
	for w := range d.open {
		windows = append(windows, w)
	}
	d.mu.Unlock()
	fyne.Do(func() {
		for _, w := range windows {
			w.Close()
		}
	})
}

func (d *Display) newWindow(title string) fyne.Window {
	var w fyne.Window
	if drv, ok := d.app.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
		w.SetTitle(title)
	} else {
		w = d.app.NewWindow(title)
	}
	w.SetPadded(true)
	d.mu.Lock()
	d.open[w] = struct{}{}
	d.mu.Unlock()
	w.SetOnClosed(func() {
		d.mu.Lock()
		delete(d.open, w)
		d.mu.Unlock()
	})
	return w
}

// dismisser returns an idempotent close for w that is safe from any goroutine.
func (d *Display) dismisser(w fyne.Window) func() {
	var once sync.Once
	return func() {
		once.Do(func() { fyne.Do(w.Close) })
	}
}

func (d *Display) present(w fyne.Window, x, y int, dismiss func()) {
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			dismiss()
		}
	})
	w.Show()
	if x >= 0 || y >= 0 {
		if !moveWindow(w, x, y) {
			w.CenterOnScreen()
		}
	}
	w.RequestFocus()
}

func (d *Display) expire(after time.Duration, dismiss func()) {
	if after <= 0 {
		return
	}
	time.AfterFunc(after, dismiss)
}

func resultContent(r session.Result, onClose func()) fyne.CanvasObject {
	title := widget.NewLabelWithStyle(r.Mode.String(), fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	closeBtn := widget.NewButton("✕", onClose)
	closeBtn.Importance = widget.LowImportance
	header := container.NewBorder(nil, nil, title, closeBtn)

	original := widget.NewLabel(r.OriginalText)
	original.Wrapping = fyne.TextWrapWord
	original.Importance = widget.LowImportance
	translated := widget.NewLabel(r.TranslatedText)
	translated.Wrapping = fyne.TextWrapWord

	body := container.NewVScroll(container.NewVBox(original, widget.NewSeparator(), translated))
	return container.NewBorder(header, nil, nil, nil, body)
}

func messageContent(message string, onClose func()) fyne.CanvasObject {
	text := widget.NewLabel(message)
	text.Wrapping = fyne.TextWrapWord
	closeBtn := widget.NewButton("OK", onClose)
	return container.NewBorder(nil, container.NewCenter(closeBtn), nil, nil, text)
}
