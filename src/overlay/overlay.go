// Package overlay lets the user drag a rectangle over a frozen screenshot of
// the desktop. On Windows the selector spans every monitor; elsewhere it
// covers the primary display.
package overlay

import (
	"context"
	"image"
	"image/color"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screen-translate/src/screenshot"
)

const windowTitle = "Select region"

const instructions = "Drag a rectangle over the text to translate. Press Esc to cancel."

var (
	dimColor       = color.NRGBA{A: 90}
	selectionColor = color.NRGBA{R: 230, G: 30, B: 30, A: 255}
)

// Selector implements the capture step of a session.
type Selector struct {
	app  fyne.App
	grab func() (*image.RGBA, error)
	// span places the window over the frame's screen rectangle. When it is
	// nil or fails the window goes full screen instead.
	span func(w fyne.Window, r image.Rectangle) bool
}

func NewSelector(app fyne.App) *Selector {
	return &Selector{app: app, grab: captureScreen, span: spanWindow}
}

type selection struct {
	box screenshot.BBox
	ok  bool
}

// Select freezes the screen, waits for a drag and returns the cropped image.
// ok is false when the user cancelled or the rectangle was too small.
// It must not be called from the fyne main goroutine.
func (s *Selector) Select(ctx context.Context) (image.Image, screenshot.BBox, bool, error) {
	frame, err := s.grab()
	if err != nil {
		return nil, screenshot.BBox{}, false, err
	}

	done := make(chan selection, 1)
	var w fyne.Window
	fyne.Do(func() { w = s.open(frame, done) })

	var sel selection
	select {
	case <-ctx.Done():
		fyne.Do(func() {
			if w != nil {
				w.Close()
			}
		})
		return nil, screenshot.BBox{}, false, ctx.Err()
	case sel = <-done:
	}

	if !sel.ok {
		log.Printf("Overlay: selection cancelled")
		return nil, screenshot.BBox{}, false, nil
	}
	if !sel.box.Valid() {
		log.Printf("Overlay: selection %dx%d too small, ignored", sel.box.Width(), sel.box.Height())
		return nil, sel.box, false, nil
	}
	img, err := screenshot.Crop(frame, sel.box)
	if err != nil {
		return nil, sel.box, false, err
	}
	log.Printf("Overlay: selected %+v", sel.box)
	return img, sel.box, true, nil
}

func (s *Selector) open(frame *image.RGBA, done chan<- selection) fyne.Window {
	var w fyne.Window
	if drv, ok := s.app.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
	} else {
		w = s.app.NewWindow(windowTitle)
	}
	w.SetTitle(windowTitle)
	w.SetPadded(false)

	var once sync.Once
	report := func(sel selection) bool {
		first := false
		once.Do(func() {
			done <- sel
			first = true
		})
		return first
	}
	finish := func(sel selection) {
		if report(sel) {
			w.Close()
		}
	}

	area := newSelectionArea(frame, func(start, end fyne.Position) {
		finish(selection{box: toScreen(start, end, w.Canvas().Scale(), frame.Bounds().Min), ok: true})
	})
	w.SetContent(area)
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			finish(selection{})
		}
	})
	w.SetOnClosed(func() { report(selection{}) })
	w.Show()
	if s.span == nil || !s.span(w, frame.Bounds()) {
		w.SetFullScreen(true)
	}
	w.RequestFocus()
	return w
}

// toScreen converts a drag in canvas units into screen pixels.
func toScreen(start, end fyne.Position, scale float32, origin image.Point) screenshot.BBox {
	if scale <= 0 {
		scale = 1
	}
	px := func(p fyne.Position) image.Point {
		return image.Pt(origin.X+int(p.X*scale+0.5), origin.Y+int(p.Y*scale+0.5))
	}
	return screenshot.FromPoints(px(start), px(end))
}

// selectionArea shows the frozen frame and tracks one drag.
type selectionArea struct {
	widget.BaseWidget

	frame    *canvas.Image
	rect     *canvas.Rectangle
	start    fyne.Position
	end      fyne.Position
	dragging bool
	onDone   func(start, end fyne.Position)
}

func newSelectionArea(frame image.Image, onDone func(start, end fyne.Position)) *selectionArea {
	a := &selectionArea{
		frame:  canvas.NewImageFromImage(frame),
		rect:   canvas.NewRectangle(color.Transparent),
		onDone: onDone,
	}
	a.frame.FillMode = canvas.ImageFillStretch
	a.rect.StrokeColor = selectionColor
	a.rect.StrokeWidth = 3
	a.rect.Hide()
	a.ExtendBaseWidget(a)
	return a
}

func (a *selectionArea) CreateRenderer() fyne.WidgetRenderer {
	hint := canvas.NewText(instructions, color.White)
	hint.TextStyle = fyne.TextStyle{Bold: true}
	hint.TextSize = 18
	dim := canvas.NewRectangle(dimColor)
	top := container.NewVBox(container.NewCenter(hint))
	return widget.NewSimpleRenderer(container.NewStack(a.frame, dim, container.NewWithoutLayout(a.rect), top))
}

func (a *selectionArea) Dragged(ev *fyne.DragEvent) {
	if !a.dragging {
		a.dragging = true
		a.start = ev.Position.Subtract(ev.Dragged)
	}
	a.end = ev.Position
	a.showRect(a.start, a.end)
}

func (a *selectionArea) DragEnd() {
	if !a.dragging {
		return
	}
	a.dragging = false
	if a.onDone != nil {
		a.onDone(a.start, a.end)
	}
}

func (a *selectionArea) showRect(from, to fyne.Position) {
	minX, maxX := from.X, to.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := from.Y, to.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	a.rect.Move(fyne.NewPos(minX, minY))
	a.rect.Resize(fyne.NewSize(maxX-minX, maxY-minY))
	a.rect.Show()
	a.rect.Refresh()
}
