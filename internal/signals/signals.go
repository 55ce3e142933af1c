package signals

import "time"

const (
	TopicSaveStatus   = "settings.save_status"
	TopicError        = "settings.error"
	TopicNotice       = "settings.notice"
	TopicTaskProgress = "settings.task_progress"
	TopicTaskState    = "settings.task_state"
	TopicAudioLevel   = "settings.audio_level"
	TopicReloaded     = "settings.reloaded"
)

// SaveStatus drives the "saved" indicator. Visible=false clears it.
type SaveStatus struct {
	Key     string
	Visible bool
	At      time.Time
}

type ErrorKind string

const (
	ErrorLoad   ErrorKind = "load"
	ErrorWrite  ErrorKind = "write"
	ErrorPath   ErrorKind = "path"
	ErrorTask   ErrorKind = "task"
	ErrorDevice ErrorKind = "device"
)

// Error is a user-visible failure.
type Error struct {
	Kind    ErrorKind
	Key     string
	Message string
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a transient toast message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

type TaskProgress struct {
	Kind    string
	Percent int
	Status  string
}

type TaskState struct {
	Kind   string
	State  string
	Result map[string]any
	Error  string
}

type AudioLevel struct {
	DB      float64
	Percent float64
}

// Reloaded is published after a successful bulk load.
type Reloaded struct {
	Keys int
}
