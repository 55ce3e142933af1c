// Package gateway carries the settings gateway contract over a websocket
// connection. Every request has an id; progress and audio level pushes for a
// running task carry the id of the start_task request that launched it.
package gateway

import (
	"encoding/json"
	"errors"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	MethodLoadAll     = "load_all"
	MethodSaveOne     = "save_one"
	MethodListDevices = "list_devices"
	MethodStartTask   = "start_task"
	MethodStopTask    = "stop_task"
	MethodOpenURL     = "open_url"
	MethodReset       = "reset"
)

const (
	typeRequest    = "request"
	typeCancel     = "cancel"
	typeResult     = "result"
	typeProgress   = "progress"
	typeAudioLevel = "audio_level"
)

const (
	codeAlreadyRunning = "already_running"
	codeTimedOut       = "timed_out"
	codeUnsupported    = "unsupported"
)

// ErrDisconnected is returned for calls that were in flight when the
// connection to the settings service dropped.
var ErrDisconnected = errors.New("settings service connection lost")

// ErrUnsupported is returned when the backend does not implement a method.
var ErrUnsupported = errors.New("operation not supported by settings service")

// Message is the single frame shape used in both directions.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Percent int             `json:"percent,omitempty"`
	Status  string          `json:"status,omitempty"`
	DB      float64         `json:"db,omitempty"`
}

type saveParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type startParams struct {
	Kind settings.TaskKind `json:"kind"`
	Args settings.TaskArgs `json:"args,omitempty"`
}

type stopParams struct {
	Kind settings.TaskKind `json:"kind"`
}

type urlParams struct {
	URL string `json:"url"`
}

// errorCode maps well-known errors to a wire code so the client can restore
// the sentinel.
func errorCode(err error) string {
	switch {
	case errors.Is(err, settings.ErrAlreadyRunning):
		return codeAlreadyRunning
	case errors.Is(err, settings.ErrTimedOut):
		return codeTimedOut
	case errors.Is(err, ErrUnsupported):
		return codeUnsupported
	default:
		return ""
	}
}

// remoteError is a failure reported by the service.
type remoteError struct {
	msg  string
	base error
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.base
}

func decodeError(msg Message) error {
	var base error
	switch msg.Code {
	case codeAlreadyRunning:
		base = settings.ErrAlreadyRunning
	case codeTimedOut:
		base = settings.ErrTimedOut
	case codeUnsupported:
		base = ErrUnsupported
	}

	return &remoteError{msg: msg.Error, base: base}
}
