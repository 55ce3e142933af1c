package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/persistence"
	"github.com/tuckerandrew21/MurmurTone/internal/platform"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	responseHeaderTimeout = 30 * time.Second
	systemDefaultName     = "System Default"
)

// Store persists root-level setting values.
type Store interface {
	LoadAll(ctx context.Context) (map[string]any, error)
	Upsert(ctx context.Context, key string, value any) error
	ReplaceAll(ctx context.Context, values map[string]any) error
}

// AudioBackend lists capture devices and streams input buffers.
type AudioBackend interface {
	InputDevices(ctx context.Context) ([]string, error)
	Meter(ctx context.Context, device string, sampleRate int, onBuffer func([]float32)) error
}

type URLOpener interface {
	OpenURL(rawURL string) error
}

type Autostart interface {
	Sync(cfg platform.AutostartConfig) error
}

// TaskHistory records task runs.
type TaskHistory interface {
	Upsert(ctx context.Context, run persistence.TaskRun) error
}

type Options struct {
	Schema    *settings.Schema
	Store     Store
	Audio     AudioBackend
	URLs      URLOpener
	Autostart Autostart
	// AutostartLaunch supplies the executable and arguments for the login item.
	AutostartLaunch platform.AutostartConfig
	History         TaskHistory
	Writer          *persistence.WriterQueue

	HTTPClient     *http.Client
	ModelsDir      string
	GPUDir         string
	ModelURLs      map[string]string
	GPUPackageURL  string
	ReleaseFeedURL string
	CurrentVersion string
	UserAgent      string

	Now    func() time.Time
	Logger *slog.Logger
}

type runner func(ctx context.Context, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error)

type activeRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Service owns the persisted settings and executes tasks on behalf of
// settings windows. It implements settings.Gateway and settings.Resetter.
type Service struct {
	opts    Options
	schema  *settings.Schema
	client  *http.Client
	now     func() time.Time
	logger  *slog.Logger
	runners map[settings.TaskKind]runner

	writeMu sync.Mutex

	activeMu sync.Mutex
	active   map[settings.TaskKind]*activeRun
}

var (
	_ settings.Gateway  = (*Service)(nil)
	_ settings.Resetter = (*Service)(nil)
)

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("settings store is required")
	}
	if opts.Schema == nil {
		opts.Schema = settings.StandardSchema()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "service")
	}
	client := opts.HTTPClient
	if client == nil {
		// No overall timeout: model archives can take minutes. Short calls
		// bound themselves with a context deadline.
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: responseHeaderTimeout,
		}}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		opts:   opts,
		schema: opts.Schema,
		client: client,
		now:    now,
		logger: logger,
		active: make(map[settings.TaskKind]*activeRun),
	}
	s.runners = map[settings.TaskKind]runner{
		settings.TaskDownloadModel: s.runDownloadModel,
		settings.TaskGPUInstall:    s.runGPUInstall,
		settings.TaskOllamaTest:    s.runOllamaTest,
		settings.TaskCheckUpdates:  s.runCheckUpdates,
		settings.TaskMicTest:       s.runMicTest,
	}

	return s, nil
}

func (s *Service) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	return req, nil
}

// LoadAll returns the defaults overlaid with stored values, plus the
// derived downloaded_models list.
func (s *Service) LoadAll(ctx context.Context) (settings.Tree, error) {
	tree, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	models := s.downloadedModels()
	list := make([]any, 0, len(models))
	for _, name := range models {
		list = append(list, name)
	}
	tree["downloaded_models"] = list
	s.logger.Debug("settings loaded", "keys", len(tree))

	return tree, nil
}

func (s *Service) current(ctx context.Context) (settings.Tree, error) {
	stored, err := s.opts.Store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	tree := s.schema.Defaults()
	for key, value := range stored {
		tree[key] = value
	}

	return tree, nil
}

// SaveOne validates and persists a single value. Dotted keys update a
// field inside a record, creating missing records along the way.
func (s *Service) SaveOne(ctx context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("save setting: empty key")
	}
	if field, ok := s.schema.Field(key); ok && field.ReadOnly {
		return fmt.Errorf("save setting %s: read-only", key)
	}
	canonical, err := settings.Canonical(value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	root := settings.RootKey(key)
	rootValue := canonical
	if root != key {
		tree, err := s.current(ctx)
		if err != nil {
			return err
		}
		scratch := settings.Tree{root: tree[root]}.Clone()
		if err := scratch.AssignCreate(key, canonical); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
		rootValue = scratch[root]
	}

	normalized, err := normalizeValue(root, rootValue)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	if root == "start_with_windows" {
		if err := s.syncAutostart(normalized); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	if err := s.opts.Store.Upsert(ctx, root, normalized); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	s.logger.Debug("setting saved", "key", key)

	return nil
}

func (s *Service) syncAutostart(value any) error {
	if s.opts.Autostart == nil {
		return nil
	}
	enabled, _ := value.(bool)
	cfg := s.opts.AutostartLaunch
	cfg.Enabled = enabled
	if err := s.opts.Autostart.Sync(cfg); err != nil {
		return fmt.Errorf("sync autostart: %w", err)
	}

	return nil
}

// ResetToDefaults drops every stored value and turns autostart off.
func (s *Service) ResetToDefaults(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.opts.Store.ReplaceAll(ctx, map[string]any{}); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	if def, ok := s.schema.Default("start_with_windows"); ok {
		if err := s.syncAutostart(def); err != nil {
			s.logger.Warn("reset autostart", "error", err)
		}
	}
	s.logger.Info("settings reset to defaults")

	return nil
}

// ListDevices returns the system default followed by every input device.
func (s *Service) ListDevices(ctx context.Context) ([]settings.Device, error) {
	out := []settings.Device{{ID: nil, Name: systemDefaultName}}
	if s.opts.Audio == nil {
		return out, nil
	}
	names, err := s.opts.Audio.InputDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	for _, name := range names {
		id := name
		out = append(out, settings.Device{ID: &id, Name: name})
	}

	return out, nil
}

func (s *Service) OpenExternalURL(_ context.Context, rawURL string) error {
	if err := platform.ValidateExternalURL(rawURL); err != nil {
		return err
	}
	if s.opts.URLs == nil {
		return errors.New("open url: no system handler")
	}

	return s.opts.URLs.OpenURL(rawURL)
}

func (s *Service) downloadedModels() []string {
	dir := strings.TrimSpace(s.opts.ModelsDir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("read models dir", "dir", dir, "error", err)
		}

		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)

	return out
}
