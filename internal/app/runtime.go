package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/audio"
	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/config"
	"github.com/tuckerandrew21/MurmurTone/internal/gateway"
	"github.com/tuckerandrew21/MurmurTone/internal/logging"
	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/persistence"
	"github.com/tuckerandrew21/MurmurTone/internal/platform"
	"github.com/tuckerandrew21/MurmurTone/internal/service"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	autoUpdateKey      = "auto_update"
	closeFlushTimeout  = 3 * time.Second
	defaultHistorySize = 20
)

// ErrNoLocalService is returned for operations that need the in-process
// settings service while the runtime talks to a remote one.
var ErrNoLocalService = errors.New("settings service runs in another process")

// Options adjusts how Initialize wires the runtime.
type Options struct {
	// Mode overrides the configured gateway mode when set.
	Mode config.GatewayMode
	// Exclusive takes the data directory lock. Long-lived processes that own
	// the service set it; one-shot commands do not.
	Exclusive bool
	// Audio replaces the PortAudio backend.
	Audio service.AudioBackend
}

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig
	Mode   config.GatewayMode

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	SettingsRepo *persistence.SettingsRepo
	TaskRuns     *persistence.TaskRunRepo
	WriterQueue  *persistence.WriterQueue

	// Service is set in local mode, Client in remote mode. Gateway is
	// whichever of them the settings window talks to.
	Service *service.Service
	Client  *gateway.Client
	Gateway settings.Gateway

	AutostartManager platform.AutostartManager
	SystemActions    platform.SystemActions
	Lock             platform.DirLock

	Updates       *UpdateChecker
	Notifications *NotificationService
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}

	return initialize(parent, paths, logging.NewManager(), opts)
}

func initialize(parent context.Context, paths Paths, logMgr *logging.Manager, opts Options) (*Runtime, error) {
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
		Mode:   cfg.Gateway.Mode,
	}
	if opts.Mode != "" {
		rt.Mode = opts.Mode
	}

	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()

		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting settings runtime", "version", BuildVersion(), "build_date", BuildDateYMD(), "mode", rt.Mode)

	rt.Bus = bus.New(logMgr.Logger("bus"))

	switch rt.Mode {
	case config.GatewayRemote:
		rt.Client = gateway.NewClient(cfg.Gateway.URL, logMgr.Logger("gateway.client"))
		rt.Gateway = rt.Client
	default:
		if err := rt.initLocal(opts); err != nil {
			_ = rt.Close()

			return nil, err
		}
		rt.Gateway = rt.Service
	}

	return rt, nil
}

func (r *Runtime) initLocal(opts Options) error {
	if opts.Exclusive {
		lock, err := platform.LockDir(r.Paths.RootDir)
		if err != nil && !errors.Is(err, platform.ErrDirLockUnsupported) {
			return fmt.Errorf("lock data dir: %w", err)
		}
		r.Lock = lock
	}

	db, err := persistence.Open(r.Ctx, r.Paths.DBFile)
	if err != nil {
		return err
	}
	r.DB = db
	r.SettingsRepo = persistence.NewSettingsRepo(db)
	r.TaskRuns = persistence.NewTaskRunRepo(db, persistence.DefaultTaskRunRetention)
	r.WriterQueue = persistence.NewWriterQueue(r.LogManager.Logger("persistence"))
	r.WriterQueue.Start(r.Ctx)

	audioBackend := opts.Audio
	if audioBackend == nil {
		audioBackend = audio.NewPortAudio(r.LogManager.Logger("audio"))
	}
	r.AutostartManager = platform.NewAutostartManager()
	r.SystemActions = platform.NewSystemActions(r.LogManager.Logger("platform"))

	launch := autostartLaunch(r.Config.Service)
	svc, err := service.New(service.Options{
		Store:           r.SettingsRepo,
		Audio:           audioBackend,
		URLs:            r.SystemActions,
		Autostart:       r.AutostartManager,
		AutostartLaunch: launch,
		History:         r.TaskRuns,
		Writer:          r.WriterQueue,
		ModelsDir:       r.Paths.ModelsDir,
		GPUDir:          r.Paths.GPUDir,
		ModelURLs:       r.Config.Service.ModelURLs,
		GPUPackageURL:   r.Config.Service.GPUPackageURL,
		ReleaseFeedURL:  r.Config.Service.ReleaseFeedURL,
		CurrentVersion:  BuildVersion(),
		UserAgent:       UserAgent(),
		Logger:          r.LogManager.Logger("service"),
	})
	if err != nil {
		return fmt.Errorf("initialize settings service: %w", err)
	}
	r.Service = svc

	if err := reconcileAutostart(r.Ctx, r.SettingsRepo, r.AutostartManager, launch, "startup"); err != nil {
		slog.Warn("sync autostart on startup", "error", err)
	}

	return nil
}

// NewEngine creates the settings state for one settings window.
func (r *Runtime) NewEngine() *settings.Engine {
	cfg := r.CurrentConfig()

	return settings.NewEngine(r.Gateway, r.Bus, settings.EngineOptions{
		GatewayTimeout: cfg.Engine.GatewayTimeout(),
		TaskTimeout:    cfg.Engine.TaskTimeout(),
		SavedIndicator: cfg.Engine.SavedIndicator(),
	}, slog.Default())
}

// StartUpdates schedules background release checks through the engine's
// check-updates task.
func (r *Runtime) StartUpdates(engine *settings.Engine) *UpdateChecker {
	task, ok := engine.Task(settings.TaskCheckUpdates)
	if !ok {
		return nil
	}
	checker := NewUpdateChecker(UpdateCheckerConfig{
		Interval: r.CurrentConfig().Updates.Interval(),
		Enabled: func() bool {
			return engine.Store.Loaded() && engine.Store.Bool(autoUpdateKey)
		},
		Check:     engine.CheckUpdates,
		Publisher: r.Bus,
		Logger:    r.LogManager.Logger("app.updates"),
	})
	checker.Attach(task)
	checker.Start(r.Ctx)
	r.Updates = checker

	return checker
}

func (r *Runtime) StartNotifications(sender notifications.Sender, isForeground func() bool) *NotificationService {
	svc := NewNotificationService(r.Bus, r.CurrentConfig, isForeground, sender, r.LogManager.Logger("app.notifications"))
	svc.Start(r.Ctx)
	r.Notifications = svc

	return svc
}

// Serve exposes the in-process service to remote settings windows until ctx
// is cancelled.
func (r *Runtime) Serve(ctx context.Context) error {
	if r.Service == nil {
		return ErrNoLocalService
	}
	server := gateway.NewServer(r.Service, r.LogManager.Logger("gateway.server"))

	return server.ListenAndServe(ctx, r.CurrentConfig().Gateway.ListenAddr)
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

func (r *Runtime) SaveAndApplyConfig(cfg config.AppConfig) error {
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	cfg.UI.LastTab = r.Config.UI.LastTab
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		r.mu.Unlock()

		return err
	}
	r.Config = cfg
	r.mu.Unlock()

	if err := r.LogManager.Configure(cfg.Logging, r.Paths.LogFile); err != nil {
		return err
	}

	return nil
}

func (r *Runtime) RememberLastTab(tab string) {
	normalized := strings.TrimSpace(tab)

	r.mu.Lock()
	if r.Config.UI.LastTab == normalized {
		r.mu.Unlock()

		return
	}
	cfg := r.Config
	cfg.UI.LastTab = normalized
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		r.mu.Unlock()
		slog.Warn("save last tab", "error", err)

		return
	}
	r.Config = cfg
	r.mu.Unlock()
}

// TaskHistory lists recorded task runs, newest first. An empty kind lists
// every kind.
func (r *Runtime) TaskHistory(ctx context.Context, kind string, limit int) ([]persistence.TaskRun, error) {
	if r.TaskRuns == nil {
		return nil, ErrNoLocalService
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if r.WriterQueue != nil {
		if err := r.WriterQueue.Flush(ctx); err != nil {
			return nil, fmt.Errorf("flush task history: %w", err)
		}
	}

	return r.TaskRuns.ListRecent(ctx, kind, limit)
}

func (r *Runtime) ClearTaskHistory(ctx context.Context) error {
	if r.TaskRuns == nil {
		return ErrNoLocalService
	}
	if err := r.TaskRuns.Clear(ctx); err != nil {
		return err
	}
	slog.Info("task history cleared")

	return nil
}

func (r *Runtime) Close() error {
	if r.Service != nil {
		r.Service.Close()
	}
	if r.WriterQueue != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
		if err := r.WriterQueue.Flush(flushCtx); err != nil {
			slog.Warn("flush pending writes on close", "error", err)
		}
		cancel()
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.Client != nil {
		_ = r.Client.Close()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	if r.Lock != nil {
		_ = r.Lock.Release()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}

	return nil
}
