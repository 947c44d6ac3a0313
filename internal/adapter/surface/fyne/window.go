package fyne

import (
	"sync"

	fyneapp "fyne.io/fyne/v2"
)

// Window hosts the visualizer surface in a desktop window.
type Window struct {
	app     fyneapp.App
	window  fyneapp.Window
	surface *Surface

	// Lifecycle management
	closeOnce sync.Once
}

// NewWindow creates the application window with a surface mounted as its
// only content.
func NewWindow(app fyneapp.App, title string, width, height int) *Window {
	w := &Window{
		app:     app,
		surface: NewSurface(width, height),
	}

	w.window = app.NewWindow(title)
	w.window.SetContent(w.surface.Object())
	w.window.Resize(fyneapp.Size{
		Width:  float32(width),
		Height: float32(height),
	})

	return w
}

// Surface returns the render surface bound to this window.
func (w *Window) Surface() *Surface {
	return w.surface
}

// SetOnClosed registers a callback that runs once when the window closes,
// whether through the close button or Close.
func (w *Window) SetOnClosed(fn func()) {
	w.window.SetOnClosed(func() {
		w.closeOnce.Do(fn)
	})
}

// ShowAndRun shows the window and runs the event loop. Blocks until the
// window closes.
func (w *Window) ShowAndRun() {
	w.window.ShowAndRun()
}

// Close closes the window, ending ShowAndRun.
func (w *Window) Close() {
	w.window.Close()
}
