package hotkey

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chord is a modifier set plus one non-modifier key.
type Chord struct {
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Key   string `json:"key"`
}

func Default() Chord {
	return Chord{Ctrl: true, Shift: true, Key: "space"}
}

// Value is the stored form of the chord.
func (c Chord) Value() map[string]any {
	return map[string]any{
		"ctrl":  c.Ctrl,
		"shift": c.Shift,
		"alt":   c.Alt,
		"key":   c.Key,
	}
}

// FromValue reads a stored chord. Missing fields fall back to the default.
func FromValue(v any) (Chord, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Chord{}, false
	}
	c := Default()
	if b, ok := m["ctrl"].(bool); ok {
		c.Ctrl = b
	}
	if b, ok := m["shift"].(bool); ok {
		c.Shift = b
	}
	if b, ok := m["alt"].(bool); ok {
		c.Alt = b
	}
	if s, ok := m["key"].(string); ok {
		c.Key = s
	}

	return c, true
}

var functionKey = regexp.MustCompile(`(?i)^f\d+$`)

// String formats the chord for display, e.g. "Ctrl + Shift + Space".
func (c Chord) String() string {
	if c.Key == "" {
		return "Not set"
	}
	parts := make([]string, 0, 4)
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}

	return strings.Join(append(parts, displayKey(c.Key)), " + ")
}

func displayKey(key string) string {
	switch {
	case key == "space" || key == " ":
		return "Space"
	case functionKey.MatchString(key):
		return strings.ToUpper(key)
	default:
		r, size := utf8.DecodeRuneInString(key)
		if size == 0 {
			return ""
		}

		return string(unicode.ToUpper(r)) + key[size:]
	}
}

// KeyEvent is a key press as reported by the windowing layer. Key uses
// names like "a", " ", "Escape", "Shift" or "F5".
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
}

const Escape = "Escape"

var modifierKeys = map[string]bool{
	"Control": true,
	"Shift":   true,
	"Alt":     true,
	"Meta":    true,
}

func IsModifier(key string) bool {
	return modifierKeys[key]
}

// Normalize turns a key press into a chord: the space bar becomes "space"
// and every other key is lower-cased.
func Normalize(ev KeyEvent) Chord {
	key := strings.ToLower(ev.Key)
	if ev.Key == " " {
		key = "space"
	}

	return Chord{Ctrl: ev.Ctrl, Shift: ev.Shift, Alt: ev.Alt, Key: key}
}
