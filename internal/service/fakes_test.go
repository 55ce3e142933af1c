package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/persistence"
	"github.com/tuckerandrew21/MurmurTone/internal/platform"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu      sync.Mutex
	values  map[string]any
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]any{}}
}

func (s *memStore) LoadAll(context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out, nil
}

func (s *memStore) Upsert(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.values[key] = value

	return nil
}

func (s *memStore) ReplaceAll(_ context.Context, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any, len(values))
	for k, v := range values {
		s.values[k] = v
	}

	return nil
}

func (s *memStore) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]

	return v, ok
}

type fakeAudio struct {
	devices []string
	listErr error
	buffer  []float32

	mu         sync.Mutex
	meterCalls []meterCall
}

type meterCall struct {
	device string
	rate   int
}

func (a *fakeAudio) InputDevices(context.Context) ([]string, error) {
	return a.devices, a.listErr
}

func (a *fakeAudio) Meter(ctx context.Context, device string, rate int, onBuffer func([]float32)) error {
	a.mu.Lock()
	a.meterCalls = append(a.meterCalls, meterCall{device: device, rate: rate})
	a.mu.Unlock()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			onBuffer(a.buffer)
		}
	}
}

func (a *fakeAudio) calls() []meterCall {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]meterCall(nil), a.meterCalls...)
}

type fakeAutostart struct {
	err   error
	syncs []platform.AutostartConfig
}

func (a *fakeAutostart) Sync(cfg platform.AutostartConfig) error {
	a.syncs = append(a.syncs, cfg)

	return a.err
}

type fakeOpener struct {
	opened []string
}

func (o *fakeOpener) OpenURL(rawURL string) error {
	o.opened = append(o.opened, rawURL)

	return nil
}

type memHistory struct {
	mu   sync.Mutex
	runs map[string]persistence.TaskRun
}

func (h *memHistory) Upsert(_ context.Context, run persistence.TaskRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runs == nil {
		h.runs = map[string]persistence.TaskRun{}
	}
	h.runs[run.RunID] = run

	return nil
}

func (h *memHistory) statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.runs))
	for _, run := range h.runs {
		out = append(out, run.Status)
	}

	return out
}

type progressEvent struct {
	percent int
	status  string
}

type spyListener struct {
	mu       sync.Mutex
	progress []progressEvent
	levels   []float64
}

func (l *spyListener) OnProgress(percent int, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, progressEvent{percent: percent, status: status})
}

func (l *spyListener) OnAudioLevel(db float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, db)
}

func (l *spyListener) events() []progressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]progressEvent(nil), l.progress...)
}

func (l *spyListener) levelCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.levels)
}

func newTestService(t *testing.T, mutate func(*Options)) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	opts := Options{
		Store:  store,
		Logger: discardLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := New(opts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return svc, store
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errBoom = errors.New("boom")

var _ settings.TaskListener = (*spyListener)(nil)
