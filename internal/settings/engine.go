package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const DefaultGatewayTimeout = 10 * time.Second

type EngineOptions struct {
	Schema         *Schema
	GatewayTimeout time.Duration
	TaskTimeout    time.Duration
	SavedIndicator time.Duration
}

// Engine owns the settings state of one settings window.
type Engine struct {
	Store       *Store
	Persistence *Persistence
	Graph       *VisibilityGraph
	Models      *ModelCatalog
	Mic         *MicTest

	Vocabulary *Collection[string]
	Fillers    *Collection[string]
	Dictionary *Collection[Row]
	Commands   *Collection[Row]

	tasks     map[TaskKind]*Task
	gateway   Gateway
	publisher Publisher
	opts      EngineOptions
	logger    *slog.Logger
}

func NewEngine(gateway Gateway, publisher Publisher, opts EngineOptions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Schema == nil {
		opts.Schema = StandardSchema()
	}

	e := &Engine{
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With("component", "settings"),
		Models:    NewModelCatalog(),
		tasks:     make(map[TaskKind]*Task),
	}
	e.Store = NewStore(gateway, opts.Schema, opts.GatewayTimeout, logger.With("component", "settings.store"))
	e.Graph = NewVisibilityGraph(e.Store, logger.With("component", "settings.visibility"))
	e.Persistence = NewPersistence(gateway, e.Store, e.Graph, publisher, PersistenceOptions{
		Timeout:        opts.GatewayTimeout,
		SavedIndicator: opts.SavedIndicator,
	}, logger.With("component", "settings.persistence"))
	e.Mic = NewMicTest(gateway, publisher, opts.GatewayTimeout, logger.With("component", "settings.mic_test"))

	e.Vocabulary = NewCollection(WordListSpec("custom_vocabulary", false, "Word already in vocabulary"), e.Store, e.Persistence, publisher, nil)
	e.Fillers = NewCollection(WordListSpec("custom_fillers", true, "Word already in list"), e.Store, e.Persistence, publisher, nil)
	e.Dictionary = NewCollection(PairSpec("custom_dictionary", "from", "to"), e.Store, e.Persistence, publisher, nil)
	e.Commands = NewCollection(PairSpec("custom_commands", "trigger", "replacement"), e.Store, e.Persistence, publisher, nil)

	for _, kind := range TaskKinds() {
		e.tasks[kind] = NewTask(kind, gateway, publisher, opts.TaskTimeout, logger.With("component", "settings.task", "kind", string(kind)))
	}
	e.tasks[TaskDownloadModel].OnComplete(e.modelDownloaded)

	return e
}

// Task returns the controller of a progress-reporting task kind.
func (e *Engine) Task(kind TaskKind) (*Task, bool) {
	t, ok := e.tasks[kind]

	return t, ok
}

// Load pulls the full tree and re-applies every visibility rule.
func (e *Engine) Load(ctx context.Context) error {
	tree, err := e.Store.Load(ctx)
	if err != nil {
		e.logger.Error("settings load failed", "error", err)
		e.publish(signals.TopicError, signals.Error{Kind: signals.ErrorLoad, Message: "Failed to load settings: " + errors.Unwrap(err).Error()})

		return err
	}
	e.Models.Replace(AsStrings(tree["downloaded_models"]))
	e.Graph.EvaluateAll()
	e.publish(signals.TopicReloaded, signals.Reloaded{Keys: len(tree)})

	return nil
}

// Save persists one field edit.
func (e *Engine) Save(ctx context.Context, key string, value any) error {
	if f, ok := e.Store.Schema().Field(key); ok && f.ReadOnly {
		return &WriteError{Key: key, Err: fmt.Errorf("setting is read-only")}
	}

	return e.Persistence.Save(ctx, key, value)
}

// ResetToDefaults asks the service to restore defaults and reloads.
func (e *Engine) ResetToDefaults(ctx context.Context) error {
	r, ok := e.gateway.(Resetter)
	if !ok {
		return fmt.Errorf("reset settings: not supported by this connection")
	}
	e.Persistence.Flush(ctx)
	callCtx, cancel := withOptionalTimeout(ctx, e.opts.GatewayTimeout)
	err := r.ResetToDefaults(callCtx)
	cancel()
	if err != nil {
		err = classifyCallError(err)
		e.publish(signals.TopicError, signals.Error{Kind: signals.ErrorWrite, Message: "Failed to reset settings: " + err.Error()})

		return fmt.Errorf("reset settings: %w", err)
	}

	return e.Load(ctx)
}

// Devices lists audio inputs with the system default first.
func (e *Engine) Devices(ctx context.Context) ([]Device, error) {
	callCtx, cancel := withOptionalTimeout(ctx, e.opts.GatewayTimeout)
	defer cancel()
	devices, err := e.gateway.ListDevices(callCtx)
	if err != nil {
		err = classifyCallError(err)
		e.publish(signals.TopicError, signals.Error{Kind: signals.ErrorDevice, Message: "Failed to list audio devices: " + err.Error()})

		return nil, fmt.Errorf("list devices: %w", err)
	}

	return SortDevices(devices), nil
}

// DownloadModel starts downloading a speech model unless it is bundled.
func (e *Engine) DownloadModel(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("download model: empty model name")
	}
	if IsBundledModel(name) {
		e.publish(signals.TopicNotice, signals.Notice{Level: signals.NoticeInfo, Message: "This model is already bundled with MurmurTone"})

		return nil
	}

	return e.tasks[TaskDownloadModel].Start(ctx, TaskArgs{"model": name})
}

// TestOllama checks the configured Ollama endpoint.
func (e *Engine) TestOllama(ctx context.Context) error {
	url := strings.TrimSpace(e.Store.String("ollama_url"))
	if url == "" {
		e.publish(signals.TopicNotice, signals.Notice{Level: signals.NoticeWarning, Message: "Enter an Ollama URL first"})

		return fmt.Errorf("test ollama: empty url")
	}

	return e.tasks[TaskOllamaTest].Start(ctx, TaskArgs{"url": url})
}

func (e *Engine) InstallGPUSupport(ctx context.Context) error {
	return e.tasks[TaskGPUInstall].Start(ctx, nil)
}

func (e *Engine) CheckUpdates(ctx context.Context) error {
	return e.tasks[TaskCheckUpdates].Start(ctx, nil)
}

func (e *Engine) OpenURL(ctx context.Context, url string) error {
	callCtx, cancel := withOptionalTimeout(ctx, e.opts.GatewayTimeout)
	defer cancel()
	if err := e.gateway.OpenExternalURL(callCtx, url); err != nil {
		return fmt.Errorf("open url: %w", classifyCallError(err))
	}

	return nil
}

// Close flushes pending edits and stops timers.
func (e *Engine) Close(ctx context.Context) {
	e.Persistence.Flush(ctx)
	e.Persistence.Close()
	if e.Mic.Testing() {
		_ = e.Mic.Stop(ctx)
	}
}

func (e *Engine) modelDownloaded(outcome TaskOutcome) {
	if outcome.Err != nil {
		return
	}
	name, _ := outcome.Args["model"].(string)
	if name == "" {
		return
	}
	e.Models.MarkDownloaded(name)
	e.Graph.Evaluate("model_size")
	e.publish(signals.TopicNotice, signals.Notice{Level: signals.NoticeSuccess, Message: "Model downloaded successfully!"})
}

func (e *Engine) publish(topic string, msg any) {
	if e.publisher != nil {
		e.publisher.Publish(topic, msg)
	}
}
