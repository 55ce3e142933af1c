// Package notifications delivers short desktop notifications about task
// results and releases.
package notifications

import "strings"

// Payload is one notification. Title falls back to the app name.
type Payload struct {
	Title   string
	Content string
}

// Sender delivers payloads through one notification backend.
type Sender interface {
	Send(payload Payload)
}

// Resolve trims the payload and fills an empty title with appName. It
// reports false when there is nothing to show.
func (p Payload) Resolve(appName string) (Payload, bool) {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.Title == "" && p.Content == "" {
		return p, false
	}
	if p.Title == "" {
		p.Title = appName
	}

	return p, true
}
