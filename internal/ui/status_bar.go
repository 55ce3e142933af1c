package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const noticeLifetime = 5 * time.Second

// statusBar shows the transient "Saved" indicator and the latest error or
// notice. Errors stay until the next message; notices fade after a while.
type statusBar struct {
	saved   *widget.Label
	message *widget.Label
	root    *fyne.Container

	runOnUI    func(func())
	afterFunc  func(time.Duration, func())
	generation uint64
}

func newStatusBar(runOnUI func(func())) *statusBar {
	if runOnUI == nil {
		runOnUI = fyne.Do
	}
	s := &statusBar{
		saved:   widget.NewLabelWithStyle("Saved", fyne.TextAlignTrailing, fyne.TextStyle{Italic: true}),
		message: widget.NewLabel(""),
		runOnUI: runOnUI,
		afterFunc: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	s.saved.Hide()
	s.message.Truncation = fyne.TextTruncateEllipsis
	s.root = container.NewBorder(nil, nil, nil, s.saved, s.message)

	return s
}

func (s *statusBar) Object() fyne.CanvasObject {
	return s.root
}

func (s *statusBar) applySaveStatus(status signals.SaveStatus) {
	if status.Visible {
		s.saved.Show()

		return
	}
	s.saved.Hide()
}

func (s *statusBar) applyError(err signals.Error) {
	s.generation++
	s.message.Importance = widget.DangerImportance
	s.message.SetText(err.Message)
}

func (s *statusBar) applyNotice(notice signals.Notice) {
	s.generation++
	gen := s.generation
	switch notice.Level {
	case signals.NoticeSuccess:
		s.message.Importance = widget.SuccessImportance
	case signals.NoticeWarning:
		s.message.Importance = widget.WarningImportance
	default:
		s.message.Importance = widget.MediumImportance
	}
	s.message.SetText(notice.Message)

	s.afterFunc(noticeLifetime, func() {
		s.runOnUI(func() {
			if s.generation != gen {
				return
			}
			s.message.SetText("")
		})
	})
}
