package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	mu       sync.Mutex
	tree     settings.Tree
	saved    map[string]any
	saveErr  error
	devices  []settings.Device
	opened   []string
	resets   int
	running  map[settings.TaskKind]chan struct{}
	canceled []settings.TaskKind
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tree:    settings.Tree{"model_size": "tiny", "hotkey": map[string]any{"ctrl": true, "key": "space"}},
		saved:   map[string]any{},
		running: map[settings.TaskKind]chan struct{}{},
	}
}

func (b *fakeBackend) LoadAll(context.Context) (settings.Tree, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tree.Clone(), nil
}

func (b *fakeBackend) SaveOne(_ context.Context, key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved[key] = value

	return nil
}

func (b *fakeBackend) ListDevices(context.Context) ([]settings.Device, error) {
	return b.devices, nil
}

// StartTask emits kind-specific progress. The mic test runs until stopped
// or cancelled.
func (b *fakeBackend) StartTask(ctx context.Context, kind settings.TaskKind, args settings.TaskArgs, l settings.TaskListener) (settings.TaskResult, error) {
	b.mu.Lock()
	if _, busy := b.running[kind]; busy {
		b.mu.Unlock()

		return nil, settings.ErrAlreadyRunning
	}
	stop := make(chan struct{})
	b.running[kind] = stop
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.running, kind)
		b.mu.Unlock()
	}()

	switch kind {
	case settings.TaskMicTest:
		l.OnAudioLevel(-42)
		select {
		case <-stop:
			return settings.TaskResult{}, nil
		case <-ctx.Done():
			b.mu.Lock()
			b.canceled = append(b.canceled, kind)
			b.mu.Unlock()

			return nil, ctx.Err()
		}
	case settings.TaskDownloadModel:
		for _, p := range []int{0, 40, 80, 100} {
			l.OnProgress(p, string(kind))
		}

		return settings.TaskResult{"model": args["model"]}, nil
	default:
		l.OnProgress(50, string(kind))

		return settings.TaskResult{"kind": string(kind)}, nil
	}
}

func (b *fakeBackend) StopTask(_ context.Context, kind settings.TaskKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stop, ok := b.running[kind]; ok {
		close(stop)
		delete(b.running, kind)
	}

	return nil
}

func (b *fakeBackend) OpenExternalURL(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, url)

	return nil
}

func (b *fakeBackend) ResetToDefaults(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++

	return nil
}

type recordingListener struct {
	mu       sync.Mutex
	statuses []string
	percents []int
	levels   []float64
}

func (l *recordingListener) OnProgress(percent int, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.percents = append(l.percents, percent)
	l.statuses = append(l.statuses, status)
}

func (l *recordingListener) OnAudioLevel(db float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, db)
}

func (l *recordingListener) levelCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.levels)
}

func startServer(t *testing.T, backend settings.Gateway) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(NewServer(backend, discardLogger()).Handler())
	t.Cleanup(server.Close)

	client := NewClient("ws"+strings.TrimPrefix(server.URL, "http")+Path, discardLogger())
	t.Cleanup(func() { _ = client.Close() })

	return client, server
}

func TestClientRoundTrips(t *testing.T) {
	backend := newFakeBackend()
	id := "usb"
	backend.devices = []settings.Device{{ID: &id, Name: "USB Mic"}, {Name: "System Default"}}
	client, _ := startServer(t, backend)
	ctx := context.Background()

	tree, err := client.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if key, _ := tree.Lookup("hotkey.key"); key != "space" {
		t.Fatalf("unexpected tree: %v", tree)
	}

	if err := client.SaveOne(ctx, "custom_vocabulary", []string{"gRPC"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	backend.mu.Lock()
	saved := backend.saved["custom_vocabulary"]
	backend.mu.Unlock()
	if !reflect.DeepEqual(saved, []any{"gRPC"}) {
		t.Fatalf("unexpected saved value %#v", saved)
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 2 || !devices[0].IsDefault() || *devices[1].ID != "usb" {
		t.Fatalf("expected system default first, got %+v", devices)
	}

	if err := client.OpenExternalURL(ctx, "https://murmurtone.com"); err != nil {
		t.Fatalf("open url: %v", err)
	}
	if err := client.ResetToDefaults(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.opened) != 1 || backend.resets != 1 {
		t.Fatalf("unexpected backend state: opened=%v resets=%d", backend.opened, backend.resets)
	}
}

func TestClientSaveErrorCarriesMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.saveErr = errors.New("Invalid sample rate: 12345")
	client, _ := startServer(t, backend)

	err := client.SaveOne(context.Background(), "sample_rate", 12345)
	if err == nil || err.Error() != "Invalid sample rate: 12345" {
		t.Fatalf("expected remote error message, got %v", err)
	}
}

func TestTaskEventsReachOnlyTheirListener(t *testing.T) {
	client, _ := startServer(t, newFakeBackend())
	ctx := context.Background()

	download := &recordingListener{}
	ollama := &recordingListener{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result, err := client.StartTask(ctx, settings.TaskDownloadModel, settings.TaskArgs{"model": "small"}, download)
		if err != nil || result["model"] != "small" {
			t.Errorf("download: result=%v err=%v", result, err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := client.StartTask(ctx, settings.TaskOllamaTest, nil, ollama); err != nil {
			t.Errorf("ollama: %v", err)
		}
	}()
	wg.Wait()

	if !reflect.DeepEqual(download.percents, []int{0, 40, 80, 100}) {
		t.Fatalf("unexpected download progress %v", download.percents)
	}
	for _, status := range download.statuses {
		if status != string(settings.TaskDownloadModel) {
			t.Fatalf("download listener received foreign event %q", status)
		}
	}
	if !reflect.DeepEqual(ollama.statuses, []string{string(settings.TaskOllamaTest)}) {
		t.Fatalf("unexpected ollama events %v", ollama.statuses)
	}
}

func TestMicTestStopAndAlreadyRunning(t *testing.T) {
	client, _ := startServer(t, newFakeBackend())
	ctx := context.Background()

	listener := &recordingListener{}
	done := make(chan error, 1)
	go func() {
		_, err := client.StartTask(ctx, settings.TaskMicTest, nil, listener)
		done <- err
	}()
	waitFor(t, func() bool { return listener.levelCount() > 0 })

	_, err := client.StartTask(ctx, settings.TaskMicTest, nil, nil)
	if !errors.Is(err, settings.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning across the wire, got %v", err)
	}
	if err := client.StopTask(ctx, settings.TaskMicTest); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("mic test: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("mic test did not finish")
	}
	if listener.levels[0] != -42 {
		t.Fatalf("unexpected levels %v", listener.levels)
	}
}

func TestCancelledCallCancelsServerSide(t *testing.T) {
	backend := newFakeBackend()
	client, _ := startServer(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	listener := &recordingListener{}
	done := make(chan error, 1)
	go func() {
		_, err := client.StartTask(ctx, settings.TaskMicTest, nil, listener)
		done <- err
	}()
	waitFor(t, func() bool { return listener.levelCount() > 0 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	waitFor(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()

		return len(backend.canceled) == 1
	})
}

func TestDisconnectFailsInFlightCalls(t *testing.T) {
	backend := newFakeBackend()
	serverCtx, stopSessions := context.WithCancel(context.Background())
	server := httptest.NewUnstartedServer(NewServer(backend, discardLogger()).Handler())
	server.Config.BaseContext = func(net.Listener) context.Context { return serverCtx }
	server.Start()
	client := NewClient("ws"+strings.TrimPrefix(server.URL, "http")+Path, discardLogger())
	t.Cleanup(func() { _ = client.Close() })

	listener := &recordingListener{}
	done := make(chan error, 1)
	go func() {
		_, err := client.StartTask(context.Background(), settings.TaskMicTest, nil, listener)
		done <- err
	}()
	waitFor(t, func() bool { return listener.levelCount() > 0 })
	stopSessions()

	select {
	case err := <-done:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("expected ErrDisconnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("in-flight call was not failed")
	}
	server.Close()

	if _, err := client.LoadAll(context.Background()); err == nil {
		t.Fatalf("expected dial error after server shutdown")
	}
}

func TestServerRejectsUnknownMethod(t *testing.T) {
	client, _ := startServer(t, newFakeBackend())
	err := client.call(context.Background(), "format_disk", nil, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown method") {
		t.Fatalf("expected unknown method error, got %v", err)
	}
}

func TestResetUnsupportedByBackend(t *testing.T) {
	client, _ := startServer(t, gatewayOnly{newFakeBackend()})
	if err := client.ResetToDefaults(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

// gatewayOnly hides the Resetter implementation of the wrapped backend.
type gatewayOnly struct {
	settings.Gateway
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

var (
	_ settings.Gateway  = (*Client)(nil)
	_ settings.Resetter = (*Client)(nil)
)
