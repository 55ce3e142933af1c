package hotkey

import (
	"sync"
	"testing"
	"unicode/utf8"
)

func TestChordString(t *testing.T) {
	tests := []struct {
		name  string
		chord Chord
		want  string
	}{
		{name: "default", chord: Default(), want: "Ctrl + Shift + Space"},
		{name: "function key", chord: Chord{Alt: true, Key: "f9"}, want: "Alt + F9"},
		{name: "letter", chord: Chord{Ctrl: true, Key: "k"}, want: "Ctrl + K"},
		{name: "named key", chord: Chord{Key: "pageup"}, want: "Pageup"},
		{name: "accented letter", chord: Chord{Ctrl: true, Key: "é"}, want: "Ctrl + É"},
		{name: "cyrillic letter", chord: Chord{Alt: true, Key: "ж"}, want: "Alt + Ж"},
		{name: "empty", chord: Chord{Ctrl: true}, want: "Not set"},
	}

	for _, tt := range tests {
		got := tt.chord.String()
		if got != tt.want {
			t.Fatalf("%s: String() = %q, want %q", tt.name, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("%s: String() = %q is not valid UTF-8", tt.name, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   KeyEvent
		want Chord
	}{
		{in: KeyEvent{Key: " ", Ctrl: true}, want: Chord{Ctrl: true, Key: "space"}},
		{in: KeyEvent{Key: "K", Shift: true}, want: Chord{Shift: true, Key: "k"}},
		{in: KeyEvent{Key: "F5"}, want: Chord{Key: "f5"}},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestFromValue(t *testing.T) {
	c, ok := FromValue(map[string]any{"ctrl": false, "alt": true, "key": "f2"})
	if !ok {
		t.Fatalf("expected chord")
	}
	want := Chord{Ctrl: false, Shift: true, Alt: true, Key: "f2"}
	if c != want {
		t.Fatalf("FromValue = %+v, want %+v", c, want)
	}
	if _, ok := FromValue("ctrl+k"); ok {
		t.Fatalf("non-record accepted")
	}
}

type fakeSource struct {
	mu       sync.Mutex
	handler  func(KeyEvent)
	installs int
	removals int
}

func (s *fakeSource) Listen(fn func(KeyEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
	s.installs++

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handler = nil
		s.removals++
	}
}

func (s *fakeSource) press(ev KeyEvent) {
	s.mu.Lock()
	fn := s.handler
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func TestCaptureCommitsFirstNonModifier(t *testing.T) {
	src := &fakeSource{}
	var labels []string
	var committed []Chord
	capture := NewCapture(src, Default(), func(s string) { labels = append(labels, s) }, func(c Chord) { committed = append(committed, c) })

	if !capture.Begin() {
		t.Fatalf("begin failed")
	}
	if capture.Begin() {
		t.Fatalf("second begin accepted while capturing")
	}
	src.press(KeyEvent{Key: "Control", Ctrl: true})
	if !capture.Capturing() {
		t.Fatalf("modifier ended capture")
	}
	src.press(KeyEvent{Key: "K", Ctrl: true, Alt: true})

	if capture.Capturing() {
		t.Fatalf("still capturing after a key")
	}
	if len(committed) != 1 || committed[0] != (Chord{Ctrl: true, Alt: true, Key: "k"}) {
		t.Fatalf("unexpected commits %+v", committed)
	}
	if labels[0] != Prompt || labels[len(labels)-1] != "Ctrl + Alt + K" {
		t.Fatalf("unexpected labels %v", labels)
	}
	if src.removals != 1 || src.handler != nil {
		t.Fatalf("listener not removed")
	}
	src.press(KeyEvent{Key: "x"})
	if len(committed) != 1 {
		t.Fatalf("key after capture was committed")
	}
}

func TestCaptureEscapeRestoresPrevious(t *testing.T) {
	src := &fakeSource{}
	var label string
	committed := 0
	capture := NewCapture(src, Chord{Alt: true, Key: "f9"}, func(s string) { label = s }, func(Chord) { committed++ })

	capture.Begin()
	src.press(KeyEvent{Key: "Escape"})

	if committed != 0 {
		t.Fatalf("escape committed a chord")
	}
	if label != "Alt + F9" {
		t.Fatalf("label = %q, want previous chord", label)
	}
	if capture.Current() != (Chord{Alt: true, Key: "f9"}) {
		t.Fatalf("current chord changed")
	}
	if src.removals != 1 {
		t.Fatalf("listener not removed on escape")
	}
}

func TestCaptureCancel(t *testing.T) {
	src := &fakeSource{}
	var label string
	capture := NewCapture(src, Default(), func(s string) { label = s }, nil)

	capture.Begin()
	capture.Cancel()

	if capture.Capturing() || src.removals != 1 {
		t.Fatalf("cancel did not stop capture")
	}
	if label != "Ctrl + Shift + Space" {
		t.Fatalf("label = %q after cancel", label)
	}
}
