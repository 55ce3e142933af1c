package hotkey

import "sync"

const Prompt = "Press key combo..."

// KeySource delivers key presses to one listener at a time. The returned
// function removes the listener.
type KeySource interface {
	Listen(fn func(KeyEvent)) (remove func())
}

// Capture records the next key chord pressed after Begin.
type Capture struct {
	source  KeySource
	display func(string)
	commit  func(Chord)

	mu        sync.Mutex
	capturing bool
	current   Chord
	previous  Chord
	remove    func()
}

// NewCapture builds a capture. display receives every label change and
// commit receives a newly captured chord.
func NewCapture(source KeySource, current Chord, display func(string), commit func(Chord)) *Capture {
	if display == nil {
		display = func(string) {}
	}
	if commit == nil {
		commit = func(Chord) {}
	}

	return &Capture{source: source, current: current, display: display, commit: commit}
}

func (c *Capture) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capturing
}

func (c *Capture) Current() Chord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

// SetCurrent replaces the shown chord, e.g. after settings are loaded.
// It is ignored while capturing.
func (c *Capture) SetCurrent(chord Chord) {
	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()

		return
	}
	c.current = chord
	c.mu.Unlock()
	c.display(chord.String())
}

// Begin starts listening. It returns false if a capture is in progress.
func (c *Capture) Begin() bool {
	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()

		return false
	}
	c.capturing = true
	c.previous = c.current
	c.mu.Unlock()

	c.display(Prompt)
	remove := c.source.Listen(c.handle)

	c.mu.Lock()
	if !c.capturing {
		// Finished while the listener was being installed.
		c.mu.Unlock()
		remove()

		return true
	}
	c.remove = remove
	c.mu.Unlock()

	return true
}

// Cancel stops capturing and restores the previous chord.
func (c *Capture) Cancel() {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()

		return
	}
	prev := c.previous
	remove := c.stopLocked()
	c.mu.Unlock()

	if remove != nil {
		remove()
	}
	c.display(prev.String())
}

func (c *Capture) handle(ev KeyEvent) {
	if IsModifier(ev.Key) {
		return
	}

	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()

		return
	}
	remove := c.stopLocked()
	if ev.Key == Escape {
		prev := c.previous
		c.mu.Unlock()
		if remove != nil {
			remove()
		}
		c.display(prev.String())

		return
	}
	chord := Normalize(ev)
	c.current = chord
	c.mu.Unlock()

	if remove != nil {
		remove()
	}
	c.display(chord.String())
	c.commit(chord)
}

func (c *Capture) stopLocked() func() {
	c.capturing = false
	remove := c.remove
	c.remove = nil

	return remove
}
