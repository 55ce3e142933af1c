package ui

import "fyne.io/fyne/v2"

type basicAppWrapper struct {
	fyne.App
}

type appRunQuitSpy struct {
	fyne.App
	runCalls  int
	quitCalls int
}

func (a *appRunQuitSpy) Run() {
	a.runCalls++
}

func (a *appRunQuitSpy) Quit() {
	a.quitCalls++
}

// shellAppSpy records what the desktop shell asks of a tray capable app.
type shellAppSpy struct {
	fyne.App
	lifecycle     *lifecycleSpy
	trayMenu      *fyne.Menu
	trayIcon      fyne.Resource
	appIcon       fyne.Resource
	notifications []*fyne.Notification
}

func newShellAppSpy(base fyne.App) *shellAppSpy {
	return &shellAppSpy{App: base, lifecycle: &lifecycleSpy{}}
}

func (a *shellAppSpy) Lifecycle() fyne.Lifecycle {
	return a.lifecycle
}

func (a *shellAppSpy) SetIcon(icon fyne.Resource) {
	a.appIcon = icon
}

func (a *shellAppSpy) SendNotification(n *fyne.Notification) {
	a.notifications = append(a.notifications, n)
}

func (a *shellAppSpy) SetSystemTrayMenu(menu *fyne.Menu) {
	a.trayMenu = menu
}

func (a *shellAppSpy) SetSystemTrayIcon(icon fyne.Resource) {
	a.trayIcon = icon
}

func (a *shellAppSpy) SetSystemTrayWindow(fyne.Window) {}

type windowSpy struct {
	fyne.Window
	showCalls      int
	hideCalls      int
	focusCalls     int
	closeIntercept func()
}

func (w *windowSpy) Show() {
	w.showCalls++
	if w.Window != nil {
		w.Window.Show()
	}
}

func (w *windowSpy) Hide() {
	w.hideCalls++
	if w.Window != nil {
		w.Window.Hide()
	}
}

func (w *windowSpy) RequestFocus() {
	w.focusCalls++
	if w.Window != nil {
		w.Window.RequestFocus()
	}
}

func (w *windowSpy) SetCloseIntercept(fn func()) {
	w.closeIntercept = fn
	if w.Window != nil {
		w.Window.SetCloseIntercept(fn)
	}
}

// lifecycleSpy keeps the foreground hooks so tests can fire them.
type lifecycleSpy struct {
	entered func()
	exited  func()
}

func (l *lifecycleSpy) SetOnEnteredForeground(fn func()) { l.entered = fn }
func (l *lifecycleSpy) SetOnExitedForeground(fn func()) { l.exited = fn }
func (l *lifecycleSpy) SetOnStarted(func()) {}
func (l *lifecycleSpy) SetOnStopped(func()) {}
