package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GatewayMode selects where the settings service lives.
type GatewayMode string

const (
	// GatewayLocal runs the settings service in-process.
	GatewayLocal GatewayMode = "local"
	// GatewayRemote dials a settings service over websocket.
	GatewayRemote GatewayMode = "remote"

	DefaultListenAddr       = "127.0.0.1:47821"
	DefaultGatewayURL       = "ws://127.0.0.1:47821/ws"
	DefaultGatewayTimeoutMs = 10000
	DefaultSavedIndicatorMs = 2000
	DefaultUpdateInterval   = 6
	DefaultReleaseFeedURL   = "https://api.github.com/repos/tuckerandrew21/MurmurTone/releases?per_page=20"
	DefaultGPUPackageURL    = "https://github.com/tuckerandrew21/MurmurTone/releases/download/gpu-libs-v1.0.0/murmurtone-gpu-libs.zip"
	defaultModelURLPrefix   = "https://github.com/tuckerandrew21/MurmurTone/releases/download/models-v1.0.0/"
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// GatewayConfig describes how the settings window reaches the service.
type GatewayConfig struct {
	Mode       GatewayMode `json:"mode"`
	URL        string      `json:"url"`
	ListenAddr string      `json:"listen_addr"`
}

// EngineConfig holds settings window timings. Zero task timeout means no deadline.
type EngineConfig struct {
	GatewayTimeoutMs int `json:"gateway_timeout_ms"`
	TaskTimeoutMs    int `json:"task_timeout_ms"`
	SavedIndicatorMs int `json:"saved_indicator_ms"`
}

// ServiceConfig holds download endpoints and OS integration for the settings service.
type ServiceConfig struct {
	ModelURLs           map[string]string `json:"model_urls"`
	GPUPackageURL       string            `json:"gpu_package_url"`
	ReleaseFeedURL      string            `json:"release_feed_url"`
	AutostartExecutable string            `json:"autostart_executable"`
	AutostartArgs       []string          `json:"autostart_args"`
}

// UpdatesConfig controls the background release check.
type UpdatesConfig struct {
	CheckIntervalHours int `json:"check_interval_hours"`
}

// NotificationConfig stores desktop notification preferences.
type NotificationConfig struct {
	NotifyWhenFocused bool                     `json:"notify_when_focused"`
	Events            NotificationEventsConfig `json:"events"`
}

// NotificationEventsConfig stores per-event notification toggles.
type NotificationEventsConfig struct {
	TaskCompleted   bool `json:"task_completed"`
	TaskFailed      bool `json:"task_failed"`
	UpdateAvailable bool `json:"update_available"`
}

// UIConfig stores persistent UI preferences.
type UIConfig struct {
	LastTab       string             `json:"last_tab"`
	Notifications NotificationConfig `json:"notifications"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Logging LoggingConfig `json:"logging"`
	Gateway GatewayConfig `json:"gateway"`
	Engine  EngineConfig  `json:"engine"`
	Service ServiceConfig `json:"service"`
	Updates UpdatesConfig `json:"updates"`
	UI      UIConfig      `json:"ui"`
}

func Default() AppConfig {
	return AppConfig{
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
		Gateway: GatewayConfig{
			Mode:       GatewayLocal,
			URL:        DefaultGatewayURL,
			ListenAddr: DefaultListenAddr,
		},
		Engine: EngineConfig{
			GatewayTimeoutMs: DefaultGatewayTimeoutMs,
			TaskTimeoutMs:    0,
			SavedIndicatorMs: DefaultSavedIndicatorMs,
		},
		Service: ServiceConfig{
			ModelURLs:      DefaultModelURLs(),
			GPUPackageURL:  DefaultGPUPackageURL,
			ReleaseFeedURL: DefaultReleaseFeedURL,
		},
		Updates: UpdatesConfig{
			CheckIntervalHours: DefaultUpdateInterval,
		},
		UI: UIConfig{
			Notifications: NotificationConfig{
				NotifyWhenFocused: false,
				Events: NotificationEventsConfig{
					TaskCompleted:   true,
					TaskFailed:      true,
					UpdateAvailable: true,
				},
			},
		},
	}
}

// DefaultModelURLs returns download locations for the models that are not bundled.
func DefaultModelURLs() map[string]string {
	out := make(map[string]string)
	for _, name := range []string{"small", "small.en", "medium", "medium.en", "large-v3"} {
		out[name] = defaultModelURLPrefix + name + ".zip"
	}

	return out
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	// A present model_urls object replaces the default map instead of merging into it.
	cfg.Service.ModelURLs = nil
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Gateway.Mode = normalizeGatewayMode(c.Gateway.Mode)
	if strings.TrimSpace(c.Gateway.URL) == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if strings.TrimSpace(c.Gateway.ListenAddr) == "" {
		c.Gateway.ListenAddr = DefaultListenAddr
	}
	if c.Engine.GatewayTimeoutMs <= 0 {
		c.Engine.GatewayTimeoutMs = DefaultGatewayTimeoutMs
	}
	if c.Engine.TaskTimeoutMs < 0 {
		c.Engine.TaskTimeoutMs = 0
	}
	if c.Engine.SavedIndicatorMs <= 0 {
		c.Engine.SavedIndicatorMs = DefaultSavedIndicatorMs
	}
	if c.Service.ModelURLs == nil {
		c.Service.ModelURLs = DefaultModelURLs()
	}
	if strings.TrimSpace(c.Service.GPUPackageURL) == "" {
		c.Service.GPUPackageURL = DefaultGPUPackageURL
	}
	if strings.TrimSpace(c.Service.ReleaseFeedURL) == "" {
		c.Service.ReleaseFeedURL = DefaultReleaseFeedURL
	}
	if c.Updates.CheckIntervalHours <= 0 {
		c.Updates.CheckIntervalHours = DefaultUpdateInterval
	}
}

func normalizeGatewayMode(mode GatewayMode) GatewayMode {
	switch GatewayMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case GatewayRemote:
		return GatewayRemote
	default:
		return GatewayLocal
	}
}

func (c AppConfig) Validate() error {
	switch c.Gateway.Mode {
	case GatewayLocal:
	case GatewayRemote:
		if err := validateURL(c.Gateway.URL, "ws", "wss"); err != nil {
			return fmt.Errorf("gateway url: %w", err)
		}
	default:
		return fmt.Errorf("unknown gateway mode: %s", c.Gateway.Mode)
	}
	if c.Engine.GatewayTimeoutMs < 0 || c.Engine.TaskTimeoutMs < 0 || c.Engine.SavedIndicatorMs < 0 {
		return errors.New("engine timings must not be negative")
	}
	for name, raw := range c.Service.ModelURLs {
		if err := validateURL(raw, "http", "https"); err != nil {
			return fmt.Errorf("model url %q: %w", name, err)
		}
	}
	if c.Service.GPUPackageURL != "" {
		if err := validateURL(c.Service.GPUPackageURL, "http", "https"); err != nil {
			return fmt.Errorf("gpu package url: %w", err)
		}
	}
	if c.Service.ReleaseFeedURL != "" {
		if err := validateURL(c.Service.ReleaseFeedURL, "http", "https"); err != nil {
			return fmt.Errorf("release feed url: %w", err)
		}
	}
	if exe := c.Service.AutostartExecutable; exe != "" && !filepath.IsAbs(exe) {
		return fmt.Errorf("autostart executable must be absolute: %s", exe)
	}

	return nil
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}

	return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
}

// GatewayTimeout returns the per-call deadline for load/save/list/stop calls.
func (c EngineConfig) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutMs) * time.Millisecond
}

// TaskTimeout returns the deadline for long-running tasks, zero for none.
func (c EngineConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMs) * time.Millisecond
}

func (c EngineConfig) SavedIndicator() time.Duration {
	return time.Duration(c.SavedIndicatorMs) * time.Millisecond
}

func (c UpdatesConfig) Interval() time.Duration {
	return time.Duration(c.CheckIntervalHours) * time.Hour
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
