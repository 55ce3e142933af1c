package ui

import (
	"context"
	"fmt"
	"sync"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

// signalHandlers receive engine signals on the UI goroutine. Nil handlers
// are skipped.
type signalHandlers struct {
	OnSaveStatus   func(signals.SaveStatus)
	OnError        func(signals.Error)
	OnNotice       func(signals.Notice)
	OnTaskProgress func(signals.TaskProgress)
	OnTaskState    func(signals.TaskState)
	OnAudioLevel   func(signals.AudioLevel)
	OnReloaded     func(signals.Reloaded)
	// OnUpdateSnapshot receives release check results from the update checker.
	OnUpdateSnapshot func(mtapp.UpdateSnapshot)
}

var settingsTopics = []string{
	signals.TopicSaveStatus,
	signals.TopicError,
	signals.TopicNotice,
	signals.TopicTaskProgress,
	signals.TopicTaskState,
	signals.TopicAudioLevel,
	signals.TopicReloaded,
	mtapp.TopicUpdateSnapshot,
}

func startUIEventListeners(messageBus bus.MessageBus, runOnUI func(func()), handlers signalHandlers) func() {
	if messageBus == nil {
		appLogger.Debug("skipping UI event listeners: message bus is nil")

		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := bus.Listen(ctx, messageBus, func(raw any) {
		dispatch, ok := handlers.route(raw)
		if !ok {
			appLogger.Debug("ignoring unexpected settings payload", "payload_type", fmt.Sprintf("%T", raw))

			return
		}
		if dispatch != nil {
			runOnUI(dispatch)
		}
	}, settingsTopics...)
	appLogger.Debug("subscribed to UI bus topics", "topics", settingsTopics)

	var stopOnce sync.Once

	return func() {
		stopOnce.Do(func() {
			appLogger.Debug("stopping UI event listeners")
			cancel()
			<-done
		})
	}
}

// route returns the UI callback for a payload, or nil when no handler is set.
func (h signalHandlers) route(raw any) (func(), bool) {
	switch msg := raw.(type) {
	case signals.SaveStatus:
		return bind(h.OnSaveStatus, msg), true
	case signals.Error:
		return bind(h.OnError, msg), true
	case signals.Notice:
		return bind(h.OnNotice, msg), true
	case signals.TaskProgress:
		return bind(h.OnTaskProgress, msg), true
	case signals.TaskState:
		return bind(h.OnTaskState, msg), true
	case signals.AudioLevel:
		return bind(h.OnAudioLevel, msg), true
	case signals.Reloaded:
		return bind(h.OnReloaded, msg), true
	case mtapp.UpdateSnapshot:
		return bind(h.OnUpdateSnapshot, msg), true
	default:
		return nil, false
	}
}

func bind[T any](fn func(T), msg T) func() {
	if fn == nil {
		return nil
	}

	return func() { fn(msg) }
}
