package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

type savedSetting struct {
	key   string
	value any
}

type fakeGateway struct {
	mu      sync.Mutex
	tree    settings.Tree
	saves   []savedSetting
	devices []settings.Device
	opened  []string
	resets  int
}

func (g *fakeGateway) LoadAll(context.Context) (settings.Tree, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.tree.Clone(), nil
}

func (g *fakeGateway) SaveOne(_ context.Context, key string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, savedSetting{key: key, value: value})

	return nil
}

func (g *fakeGateway) ListDevices(context.Context) ([]settings.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]settings.Device(nil), g.devices...), nil
}

func (g *fakeGateway) StartTask(context.Context, settings.TaskKind, settings.TaskArgs, settings.TaskListener) (settings.TaskResult, error) {
	return settings.TaskResult{}, nil
}

func (g *fakeGateway) StopTask(context.Context, settings.TaskKind) error {
	return nil
}

func (g *fakeGateway) OpenExternalURL(_ context.Context, url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened = append(g.opened, url)

	return nil
}

func (g *fakeGateway) ResetToDefaults(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resets++

	return nil
}

func (g *fakeGateway) saveCalls() []savedSetting {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]savedSetting(nil), g.saves...)
}

func (g *fakeGateway) savesFor(key string) []any {
	var out []any
	for _, call := range g.saveCalls() {
		if call.key == key {
			out = append(out, call.value)
		}
	}

	return out
}

// newLoadedBinder returns a binder over an engine loaded from tree. UI and
// async hooks run inline.
func newLoadedBinder(t *testing.T, tree settings.Tree) (*formBinder, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{tree: tree}
	engine := settings.NewEngine(gw, bus.Discard{}, settings.EngineOptions{
		GatewayTimeout: time.Second,
		SavedIndicator: time.Millisecond,
	}, nil)
	t.Cleanup(func() {
		engine.Close(context.Background())
	})
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load engine: %v", err)
	}

	binder := newFormBinder(context.Background(), engine, UIHooks{
		RunOnUI:  runInline,
		RunAsync: runInline,
	})

	return binder, gw
}

func strPtr(s string) *string {
	return &s
}
