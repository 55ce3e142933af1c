package main

import (
	"context"
	"sync"
	"testing"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

type fakeGateway struct {
	mu       sync.Mutex
	tree     settings.Tree
	devices  []settings.Device
	results  map[settings.TaskKind]settings.TaskResult
	failures map[settings.TaskKind]error
	started  []settings.TaskKind
	args     []settings.TaskArgs
}

func newFakeGateway(tree settings.Tree) *fakeGateway {
	if tree == nil {
		tree = settings.Tree{}
	}

	return &fakeGateway{
		tree:     tree,
		results:  map[settings.TaskKind]settings.TaskResult{},
		failures: map[settings.TaskKind]error{},
	}
}

func (g *fakeGateway) LoadAll(context.Context) (settings.Tree, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.tree.Clone(), nil
}

func (g *fakeGateway) SaveOne(_ context.Context, key string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tree[key] = value

	return nil
}

func (g *fakeGateway) ListDevices(context.Context) ([]settings.Device, error) {
	return g.devices, nil
}

func (g *fakeGateway) StartTask(_ context.Context, kind settings.TaskKind, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	g.mu.Lock()
	g.started = append(g.started, kind)
	g.args = append(g.args, args)
	result, err := g.results[kind], g.failures[kind]
	g.mu.Unlock()

	listener.OnProgress(50, "halfway")
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (g *fakeGateway) StopTask(context.Context, settings.TaskKind) error {
	return nil
}

func (g *fakeGateway) OpenExternalURL(context.Context, string) error {
	return nil
}

func (g *fakeGateway) setTree(tree settings.Tree) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tree = tree
}

func newLoadedEngine(tb testing.TB, gateway *fakeGateway) *settings.Engine {
	tb.Helper()
	engine := settings.NewEngine(gateway, bus.Discard{}, settings.EngineOptions{}, nil)
	if err := engine.Load(context.Background()); err != nil {
		tb.Fatalf("load: %v", err)
	}

	return engine
}

func strPtr(s string) *string {
	return &s
}
