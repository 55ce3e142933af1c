package settings

import (
	"context"
	"sync"
	"testing"
	"time"
)

type savedCall struct {
	key   string
	value any
}

type fakeGateway struct {
	mu       sync.Mutex
	tree     Tree
	loadErr  error
	saveErr  error
	saves    []savedCall
	devices  []Device
	stops    []TaskKind
	stopErr  error
	starts   int
	start    func(ctx context.Context, kind TaskKind, args TaskArgs, l TaskListener) (TaskResult, error)
	opened   []string
	resetErr error
	resets   int
}

func (g *fakeGateway) LoadAll(context.Context) (Tree, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}

	return g.tree.Clone(), nil
}

func (g *fakeGateway) SaveOne(_ context.Context, key string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, savedCall{key: key, value: value})

	return g.saveErr
}

func (g *fakeGateway) ListDevices(context.Context) ([]Device, error) {
	return g.devices, nil
}

func (g *fakeGateway) StartTask(ctx context.Context, kind TaskKind, args TaskArgs, l TaskListener) (TaskResult, error) {
	g.mu.Lock()
	g.starts++
	g.mu.Unlock()
	if g.start == nil {
		return TaskResult{}, nil
	}

	return g.start(ctx, kind, args, l)
}

func (g *fakeGateway) StopTask(_ context.Context, kind TaskKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stops = append(g.stops, kind)

	return g.stopErr
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

	return g.resetErr
}

func (g *fakeGateway) startCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.starts
}

func (g *fakeGateway) saveCalls() []savedCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]savedCall(nil), g.saves...)
}

type published struct {
	topic string
	msg   any
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(topic string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic: topic, msg: msg})
}

func (r *recorder) byTopic(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, m := range r.msgs {
		if m.topic == topic {
			out = append(out, m.msg)
		}
	}

	return out
}

type fakeRegion struct {
	name string

	mu      sync.Mutex
	visible bool
	enabled bool
	applied int
}

func newFakeRegion(name string) *fakeRegion {
	return &fakeRegion{name: name, visible: true, enabled: true}
}

func (r *fakeRegion) Name() string {
	return r.name
}

func (r *fakeRegion) Apply(effect Effect, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied++
	if effect == EnableDisable {
		r.enabled = active
		return
	}
	r.visible = active
}

func (r *fakeRegion) state() (visible, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.visible, r.enabled
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func loadedStore(t *testing.T, gw *fakeGateway, schema *Schema) *Store {
	t.Helper()
	store := NewStore(gw, schema, time.Second, nil)
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load store: %v", err)
	}

	return store
}

const timeoutShort = time.Second
