package settings

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

type TaskState int

const (
	TaskIdle TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// TaskStatus is a snapshot of one task controller.
type TaskStatus struct {
	Kind     TaskKind
	State    TaskState
	Percent  int
	Status   string
	Result   TaskResult
	Err      error
	Finished time.Time
}

// TaskOutcome is passed to completion hooks.
type TaskOutcome struct {
	Kind   TaskKind
	Args   TaskArgs
	Result TaskResult
	Err    error
}

// Task runs one kind of long operation at a time and relays its progress.
type Task struct {
	kind      TaskKind
	gateway   Gateway
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	status TaskStatus
	done   chan struct{}
	hooks  []func(TaskOutcome)
}

func NewTask(kind TaskKind, gateway Gateway, publisher Publisher, timeout time.Duration, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.Default().With("component", "settings.task", "kind", string(kind))
	}
	done := make(chan struct{})
	close(done)

	return &Task{
		kind:      kind,
		gateway:   gateway,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		status:    TaskStatus{Kind: kind},
		done:      done,
	}
}

func (t *Task) Kind() TaskKind {
	return t.kind
}

// OnComplete registers a hook run after every terminal state.
func (t *Task) OnComplete(fn func(TaskOutcome)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// Start launches a run. A second Start while running returns
// ErrAlreadyRunning and leaves the active run untouched.
func (t *Task) Start(ctx context.Context, args TaskArgs) error {
	t.mu.Lock()
	if t.status.State == TaskRunning {
		t.mu.Unlock()
		t.publish(signals.TopicNotice, signals.Notice{Level: signals.NoticeInfo, Message: TaskTitle(t.kind) + " is already running"})

		return ErrAlreadyRunning
	}
	t.status = TaskStatus{Kind: t.kind, State: TaskRunning}
	done := make(chan struct{})
	t.done = done
	t.mu.Unlock()

	t.logger.Info("task started")
	t.publish(signals.TopicTaskProgress, signals.TaskProgress{Kind: string(t.kind), Percent: 0})
	t.publish(signals.TopicTaskState, signals.TaskState{Kind: string(t.kind), State: TaskRunning.String()})

	go t.run(ctx, args, done)

	return nil
}

// Wait blocks until the current run finishes.
func (t *Task) Wait(ctx context.Context) (TaskStatus, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return t.Status(), ctx.Err()
	case <-done:
		return t.Status(), nil
	}
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status
	if st.Result != nil {
		st.Result = TaskResult(cloneValue(map[string]any(st.Result)).(map[string]any))
	}

	return st
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status.State == TaskRunning
}

func (t *Task) run(ctx context.Context, args TaskArgs, done chan struct{}) {
	callCtx, cancel := withOptionalTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.gateway.StartTask(callCtx, t.kind, args, &taskListener{task: t})
	err = classifyCallError(err)

	t.mu.Lock()
	if err != nil {
		t.status.State = TaskFailed
		t.status.Err = err
	} else {
		t.status.State = TaskSucceeded
		t.status.Result = result
		t.status.Percent = 100
	}
	t.status.Finished = time.Now()
	hooks := slices.Clone(t.hooks)
	close(done)
	t.mu.Unlock()

	event := signals.TaskState{Kind: string(t.kind), State: TaskSucceeded.String(), Result: result}
	if err != nil {
		t.logger.Warn("task failed", "error", err)
		event.State = TaskFailed.String()
		event.Error = err.Error()
		event.Result = nil
		t.publish(signals.TopicError, signals.Error{Kind: signals.ErrorTask, Key: string(t.kind), Message: TaskTitle(t.kind) + " failed: " + err.Error()})
	} else {
		t.logger.Info("task finished")
	}
	t.publish(signals.TopicTaskState, event)

	for _, hook := range hooks {
		hook(TaskOutcome{Kind: t.kind, Args: args, Result: result, Err: err})
	}
}

func (t *Task) progress(percent int, status string) {
	percent = max(0, min(100, percent))
	t.mu.Lock()
	if t.status.State != TaskRunning {
		t.mu.Unlock()

		return
	}
	t.status.Percent = percent
	t.status.Status = status
	t.mu.Unlock()

	t.publish(signals.TopicTaskProgress, signals.TaskProgress{Kind: string(t.kind), Percent: percent, Status: status})
}

func (t *Task) publish(topic string, msg any) {
	if t.publisher != nil {
		t.publisher.Publish(topic, msg)
	}
}

type taskListener struct {
	task *Task
}

func (l *taskListener) OnProgress(percent int, status string) {
	l.task.progress(percent, status)
}

func (l *taskListener) OnAudioLevel(float64) {}

// TaskTitle is the user-facing name of a task kind.
func TaskTitle(kind TaskKind) string {
	switch kind {
	case TaskDownloadModel:
		return "Model download"
	case TaskGPUInstall:
		return "GPU support install"
	case TaskOllamaTest:
		return "Ollama connection test"
	case TaskCheckUpdates:
		return "Update check"
	case TaskMicTest:
		return "Microphone test"
	default:
		return string(kind)
	}
}

// MicTest toggles the live input level meter.
type MicTest struct {
	gateway   Gateway
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	testing bool
	runID   uint64
	done    chan struct{}
}

func NewMicTest(gateway Gateway, publisher Publisher, timeout time.Duration, logger *slog.Logger) *MicTest {
	if logger == nil {
		logger = slog.Default().With("component", "settings.mic_test")
	}
	done := make(chan struct{})
	close(done)

	return &MicTest{gateway: gateway, publisher: publisher, timeout: timeout, logger: logger, done: done}
}

func (m *MicTest) Testing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.testing
}

// Toggle starts the meter when idle and stops it when testing.
func (m *MicTest) Toggle(ctx context.Context) error {
	if m.Testing() {
		return m.Stop(ctx)
	}

	return m.Start(ctx)
}

// Start opens the metering session. Levels arrive until Stop is called or
// the service ends the session.
func (m *MicTest) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.testing {
		m.mu.Unlock()

		return ErrAlreadyRunning
	}
	m.testing = true
	m.runID++
	runID := m.runID
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	m.publish(signals.TopicTaskState, signals.TaskState{Kind: string(TaskMicTest), State: TaskRunning.String()})
	go m.run(ctx, runID, done)

	return nil
}

// Stop asks the service to end the session. The toggle returns to idle even
// when the request fails.
func (m *MicTest) Stop(ctx context.Context) error {
	callCtx, cancel := withOptionalTimeout(ctx, m.timeout)
	err := m.gateway.StopTask(callCtx, TaskMicTest)
	cancel()
	if err != nil {
		m.logger.Warn("mic test stop failed", "error", err)
	}

	m.mu.Lock()
	wasTesting := m.testing
	m.testing = false
	m.runID++
	m.mu.Unlock()

	if wasTesting {
		m.publishIdle()
	}

	return classifyCallError(err)
}

// Wait blocks until the current session has ended.
func (m *MicTest) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (m *MicTest) run(ctx context.Context, runID uint64, done chan struct{}) {
	defer close(done)

	_, err := m.gateway.StartTask(ctx, TaskMicTest, nil, &micListener{test: m, runID: runID})

	m.mu.Lock()
	current := m.testing && m.runID == runID
	if current {
		m.testing = false
	}
	m.mu.Unlock()
	if !current {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("mic test failed", "error", err)
		m.publish(signals.TopicError, signals.Error{Kind: signals.ErrorTask, Key: string(TaskMicTest), Message: "Microphone test failed: " + err.Error()})
		m.publish(signals.TopicTaskState, signals.TaskState{Kind: string(TaskMicTest), State: TaskFailed.String(), Error: err.Error()})
		m.publish(signals.TopicAudioLevel, signals.AudioLevel{DB: MinMeterDB, Percent: 0})

		return
	}
	m.publishIdle()
}

func (m *MicTest) level(runID uint64, db float64) {
	m.mu.Lock()
	current := m.testing && m.runID == runID
	m.mu.Unlock()
	if !current {
		return
	}
	m.publish(signals.TopicAudioLevel, signals.AudioLevel{DB: db, Percent: DBToPercent(db)})
}

func (m *MicTest) publishIdle() {
	m.publish(signals.TopicAudioLevel, signals.AudioLevel{DB: MinMeterDB, Percent: 0})
	m.publish(signals.TopicTaskState, signals.TaskState{Kind: string(TaskMicTest), State: TaskIdle.String()})
}

func (m *MicTest) publish(topic string, msg any) {
	if m.publisher != nil {
		m.publisher.Publish(topic, msg)
	}
}

type micListener struct {
	test  *MicTest
	runID uint64
}

func (l *micListener) OnProgress(int, string) {}

func (l *micListener) OnAudioLevel(db float64) {
	l.test.level(l.runID, db)
}
