package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

func strPtr(s string) *string {
	return &s
}

func TestEngineLoadFailurePublishesError(t *testing.T) {
	pub := &recorder{}
	engine := NewEngine(&fakeGateway{loadErr: errors.New("service down")}, pub, EngineOptions{}, nil)

	err := engine.Load(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	errs := pub.byTopic(signals.TopicError)
	if len(errs) != 1 || errs[0].(signals.Error).Kind != signals.ErrorLoad {
		t.Fatalf("expected load error signal, got %+v", errs)
	}
	if engine.Store.Loaded() {
		t.Fatalf("store marked loaded after failure")
	}
}

func TestEngineDownloadModelUpdatesButton(t *testing.T) {
	gw := &fakeGateway{tree: Tree{"model_size": "small"}}
	gw.start = func(_ context.Context, _ TaskKind, _ TaskArgs, l TaskListener) (TaskResult, error) {
		l.OnProgress(80, "Downloading")

		return TaskResult{"model": "small"}, nil
	}
	pub := &recorder{}
	engine := NewEngine(gw, pub, EngineOptions{}, nil)
	button := newFakeRegion(RegionDownloadModel)
	if err := RegisterStandardRules(engine.Graph, func(name string) Region {
		if name == RegionDownloadModel {
			return button
		}
		return nil
	}, engine.Models); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if visible, _ := button.state(); !visible {
		t.Fatalf("download button hidden for missing model")
	}

	if err := engine.DownloadModel(context.Background(), "small"); err != nil {
		t.Fatalf("download: %v", err)
	}
	task, _ := engine.Task(TaskDownloadModel)
	if _, err := task.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	waitFor(t, timeoutShort, func() bool {
		visible, _ := button.state()
		return !visible
	})
	if !engine.Models.Installed("small") {
		t.Fatalf("catalog not updated")
	}
}

func TestEngineDownloadBundledModel(t *testing.T) {
	pub := &recorder{}
	engine := newTestEngine(t, &fakeGateway{tree: Tree{}}, pub)

	if err := engine.DownloadModel(context.Background(), "tiny"); err != nil {
		t.Fatalf("download bundled: %v", err)
	}
	task, _ := engine.Task(TaskDownloadModel)
	if task.Running() {
		t.Fatalf("bundled model download started")
	}
	notices := pub.byTopic(signals.TopicNotice)
	if len(notices) != 1 {
		t.Fatalf("expected bundled notice, got %+v", notices)
	}
}

func TestEngineDevicesDefaultFirst(t *testing.T) {
	gw := &fakeGateway{tree: Tree{}, devices: []Device{
		{ID: strPtr("usb"), Name: "USB Mic"},
		{ID: nil, Name: "System Default"},
		{ID: strPtr("hdmi"), Name: "HDMI"},
	}}
	engine := newTestEngine(t, gw, nil)

	devices, err := engine.Devices(context.Background())
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if !devices[0].IsDefault() || devices[1].Name != "USB Mic" || devices[2].Name != "HDMI" {
		t.Fatalf("unexpected device order %+v", devices)
	}
}

func TestEngineResetReloads(t *testing.T) {
	gw := &fakeGateway{tree: Tree{"language": "de"}}
	engine := newTestEngine(t, gw, nil)

	gw.mu.Lock()
	gw.tree = Tree{"language": "en"}
	gw.mu.Unlock()
	if err := engine.ResetToDefaults(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if gw.resets != 1 {
		t.Fatalf("reset not forwarded")
	}
	if got := engine.Store.String("language"); got != "en" {
		t.Fatalf("language = %q after reset", got)
	}
}

func TestEngineSaveReadOnly(t *testing.T) {
	engine := newTestEngine(t, &fakeGateway{tree: Tree{}}, nil)

	var writeErr *WriteError
	if err := engine.Save(context.Background(), "downloaded_models", []any{"x"}); !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
}

func TestEngineTestOllamaUsesStoredURL(t *testing.T) {
	gw := &fakeGateway{tree: Tree{"ollama_url": "http://gpu-box:11434"}}
	seen := make(chan string, 1)
	gw.start = func(_ context.Context, _ TaskKind, args TaskArgs, _ TaskListener) (TaskResult, error) {
		seen <- args["url"].(string)

		return TaskResult{"connected": true}, nil
	}
	engine := newTestEngine(t, gw, nil)

	if err := engine.TestOllama(context.Background()); err != nil {
		t.Fatalf("test ollama: %v", err)
	}
	if got := <-seen; got != "http://gpu-box:11434" {
		t.Fatalf("ollama url = %q", got)
	}
}
