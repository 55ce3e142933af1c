package ui

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/tuckerandrew21/MurmurTone/internal/hotkey"
)

// fyneKeySource feeds key presses of a window canvas to a hotkey capture.
// Modifier state is tracked from key down/up events when the canvas is a
// desktop canvas.
type fyneKeySource struct {
	canvas fyne.Canvas

	mu       sync.Mutex
	listener func(hotkey.KeyEvent)
	ctrl     bool
	shift    bool
	alt      bool
}

func newFyneKeySource(canvas fyne.Canvas) *fyneKeySource {
	return &fyneKeySource{canvas: canvas}
}

func (s *fyneKeySource) Listen(fn func(hotkey.KeyEvent)) func() {
	s.mu.Lock()
	s.listener = fn
	s.ctrl, s.shift, s.alt = false, false, false
	s.mu.Unlock()

	if s.canvas != nil {
		if desk, ok := s.canvas.(desktop.Canvas); ok {
			desk.SetOnKeyDown(s.keyDown)
			desk.SetOnKeyUp(s.keyUp)
		} else {
			s.canvas.SetOnTypedKey(s.keyDown)
		}
	}

	return func() {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
		if s.canvas == nil {
			return
		}
		if desk, ok := s.canvas.(desktop.Canvas); ok {
			desk.SetOnKeyDown(nil)
			desk.SetOnKeyUp(nil)
		} else {
			s.canvas.SetOnTypedKey(nil)
		}
	}
}

func (s *fyneKeySource) keyDown(ev *fyne.KeyEvent) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		s.ctrl = true
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		s.shift = true
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		s.alt = true
	}
	listener := s.listener
	event := hotkey.KeyEvent{Key: keyName(ev.Name), Ctrl: s.ctrl, Shift: s.shift, Alt: s.alt}
	s.mu.Unlock()

	if listener != nil {
		listener(event)
	}
}

func (s *fyneKeySource) keyUp(ev *fyne.KeyEvent) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		s.ctrl = false
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		s.shift = false
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		s.alt = false
	}
}

// keyName converts fyne key names to the names the hotkey package expects.
func keyName(name fyne.KeyName) string {
	switch name {
	case fyne.KeySpace:
		return " "
	case fyne.KeyEscape:
		return hotkey.Escape
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return "Control"
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return "Shift"
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return "Alt"
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return "Meta"
	}
	raw := string(name)
	if len(raw) == 1 {
		return strings.ToLower(raw)
	}

	return raw
}
