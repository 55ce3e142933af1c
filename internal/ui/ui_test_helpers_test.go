package ui

import (
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	fynetest "fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
)

func mustFindButtonByText(t *testing.T, root fyne.CanvasObject, text string) *widget.Button {
	t.Helper()
	for _, object := range fynetest.LaidOutObjects(root) {
		button, ok := object.(*widget.Button)
		if !ok {
			continue
		}
		if strings.TrimSpace(button.Text) == text {
			return button
		}
	}
	t.Fatalf("button %q not found", text)

	return nil
}

func mustFindEntryByPlaceholder(t *testing.T, root fyne.CanvasObject, placeholder string) *widget.Entry {
	t.Helper()
	for _, object := range fynetest.LaidOutObjects(root) {
		entry, ok := object.(*widget.Entry)
		if !ok {
			continue
		}
		if strings.TrimSpace(entry.PlaceHolder) == placeholder {
			return entry
		}
	}
	t.Fatalf("entry with placeholder %q not found", placeholder)

	return nil
}

func mustFindLabelByPrefix(t *testing.T, root fyne.CanvasObject, prefix string) *widget.Label {
	t.Helper()
	for _, object := range fynetest.LaidOutObjects(root) {
		label, ok := object.(*widget.Label)
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(label.Text), prefix) {
			return label
		}
	}
	t.Fatalf("label with prefix %q not found", prefix)

	return nil
}

func mustFindSelectWithOption(t *testing.T, root fyne.CanvasObject, option string) *widget.Select {
	t.Helper()
	for _, object := range fynetest.LaidOutObjects(root) {
		selectWidget, ok := object.(*widget.Select)
		if !ok {
			continue
		}
		for _, candidate := range selectWidget.Options {
			if strings.TrimSpace(candidate) == option {
				return selectWidget
			}
		}
	}
	t.Fatalf("select with option %q not found", option)

	return nil
}

func mustFindCheckByText(t *testing.T, root fyne.CanvasObject, text string) *widget.Check {
	t.Helper()
	for _, object := range fynetest.LaidOutObjects(root) {
		check, ok := object.(*widget.Check)
		if !ok {
			continue
		}
		if strings.TrimSpace(check.Text) == text {
			return check
		}
	}
	t.Fatalf("check %q not found", text)

	return nil
}

func labelTextPresent(root fyne.CanvasObject, text string) bool {
	for _, object := range fynetest.LaidOutObjects(root) {
		if label, ok := object.(*widget.Label); ok && label.Text == text {
			return true
		}
	}

	return false
}

func waitForCondition(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition was not met before timeout")
}

// runInline makes UI hooks synchronous so tests observe effects directly.
func runInline(fn func()) {
	fn()
}
