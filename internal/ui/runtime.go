package ui

import (
	"sync"

	"fyne.io/fyne/v2"
)

// windowRuntime owns the settings window for the life of the process.
// Closing the window hides it to the tray and runs the hide hooks, so
// pending edits are flushed and the microphone is released while the app
// stays resident. Shutdown runs once, whether it starts from Quit or from
// the event loop returning.
type windowRuntime struct {
	fyApp  fyne.App
	window fyne.Window

	onHide   []func()
	shutdown []func()
	onQuit   func()

	shutdownOnce sync.Once
}

// newWindowRuntime runs shutdown hooks in order, then onQuit.
func newWindowRuntime(fyApp fyne.App, window fyne.Window, onQuit func(), shutdown ...func()) *windowRuntime {
	return &windowRuntime{
		fyApp:    fyApp,
		window:   window,
		shutdown: shutdown,
		onQuit:   onQuit,
	}
}

func (r *windowRuntime) OnHide(fn func()) {
	if fn != nil {
		r.onHide = append(r.onHide, fn)
	}
}

func (r *windowRuntime) BindCloseIntercept() {
	if r.window == nil {
		return
	}
	r.window.SetCloseIntercept(r.hide)
}

func (r *windowRuntime) hide() {
	appLogger.Debug("settings window closed: hiding to tray")
	r.window.Hide()
	for _, fn := range r.onHide {
		fn()
	}
}

func (r *windowRuntime) Show() {
	if r.window == nil {
		return
	}
	r.window.Show()
	r.window.RequestFocus()
}

func (r *windowRuntime) Quit() {
	r.shutdownOnce.Do(func() {
		appLogger.Info("quitting settings app")
		r.release()
		if r.fyApp != nil {
			r.fyApp.Quit()
		}
	})
}

// Run shows the window and blocks in the fyne event loop. A hidden start
// still creates the window so the tray can reopen it.
func (r *windowRuntime) Run(startHidden bool) {
	if r.window != nil {
		r.window.Show()
		if startHidden {
			appLogger.Info("starting hidden in the system tray")
			r.window.Hide()
		}
	}
	if r.fyApp != nil {
		r.fyApp.Run()
	}
	appLogger.Info("event loop stopped")
	r.shutdownOnce.Do(r.release)
}

func (r *windowRuntime) release() {
	for _, fn := range r.shutdown {
		if fn != nil {
			fn()
		}
	}
	if r.onQuit != nil {
		r.onQuit()
	}
}
