package settings

import (
	"context"
	"errors"
	"testing"
)

func TestVisibilityGraphEvaluate(t *testing.T) {
	store := loadedStore(t, &fakeGateway{tree: Tree{"noise_gate_enabled": false, "ai_cleanup_mode": "grammar"}}, nil)
	graph := NewVisibilityGraph(store, nil)
	gate := newFakeRegion("noise-gate-options")
	formality := newFakeRegion("formality-row")
	untouched := newFakeRegion("other")

	if err := graph.Register(Rule{Driver: "noise_gate_enabled", Predicate: IsTrue, Regions: []Region{gate}, Effect: ShowHide}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := graph.Register(Rule{Driver: "ai_cleanup_mode", Predicate: NotEqual("grammar"), Regions: []Region{formality}, Effect: ShowHide}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if n := graph.EvaluateAll(); n != 2 {
		t.Fatalf("EvaluateAll applied %d regions, want 2", n)
	}
	if visible, _ := gate.state(); visible {
		t.Fatalf("noise gate options visible while gate disabled")
	}
	if visible, _ := formality.state(); visible {
		t.Fatalf("formality row visible in grammar mode")
	}
	if untouched.applied != 0 {
		t.Fatalf("unregistered region touched")
	}
	if n := graph.Evaluate("language"); n != 0 {
		t.Fatalf("driver without rules applied %d regions", n)
	}
}

func TestVisibilityGraphSealsAfterEvaluateAll(t *testing.T) {
	store := loadedStore(t, &fakeGateway{tree: Tree{}}, nil)
	graph := NewVisibilityGraph(store, nil)
	graph.EvaluateAll()

	err := graph.Register(Rule{Driver: "x", Predicate: IsTrue})
	if !errors.Is(err, ErrGraphSealed) {
		t.Fatalf("expected ErrGraphSealed, got %v", err)
	}
}

func TestVisibilityFollowsConfirmedSave(t *testing.T) {
	gw := &fakeGateway{tree: Tree{"audio_feedback": true}}
	store := loadedStore(t, gw, nil)
	graph := NewVisibilityGraph(store, nil)
	region := newFakeRegion("audio-feedback-options")
	_ = graph.Register(Rule{Driver: "audio_feedback", Predicate: IsTrue, Regions: []Region{region}, Effect: EnableDisable})
	graph.EvaluateAll()

	p := NewPersistence(gw, store, graph, nil, PersistenceOptions{}, nil)
	defer p.Close()
	if err := p.Save(context.Background(), "audio_feedback", false); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, enabled := region.state(); enabled {
		t.Fatalf("region still enabled after audio_feedback=false")
	}
	visible, _ := region.state()
	if !visible {
		t.Fatalf("enable/disable rule must not hide the region")
	}
}

func TestStandardRulesDownloadButton(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		downloaded []any
		wantShown  bool
	}{
		{name: "bundled", model: "tiny", wantShown: false},
		{name: "bundled english", model: "base.en", wantShown: false},
		{name: "not downloaded", model: "small", wantShown: true},
		{name: "downloaded", model: "small", downloaded: []any{"small"}, wantShown: false},
	}

	for _, tt := range tests {
		tree := Tree{"model_size": tt.model}
		if tt.downloaded != nil {
			tree["downloaded_models"] = tt.downloaded
		}
		engine := NewEngine(&fakeGateway{tree: tree}, nil, EngineOptions{}, nil)
		button := newFakeRegion(RegionDownloadModel)
		resolve := func(name string) Region {
			if name == RegionDownloadModel {
				return button
			}
			return nil
		}
		if err := RegisterStandardRules(engine.Graph, resolve, engine.Models); err != nil {
			t.Fatalf("%s: register: %v", tt.name, err)
		}
		if err := engine.Load(context.Background()); err != nil {
			t.Fatalf("%s: load: %v", tt.name, err)
		}
		if visible, _ := button.state(); visible != tt.wantShown {
			t.Fatalf("%s: download button visible = %v, want %v", tt.name, visible, tt.wantShown)
		}
	}
}

func TestStandardRulesFillerSection(t *testing.T) {
	engine := NewEngine(&fakeGateway{tree: Tree{"filler_removal_enabled": false}}, nil, EngineOptions{}, nil)
	aggressive := newFakeRegion(RegionFillerAggressive)
	custom := newFakeRegion(RegionCustomFillers)
	regions := map[string]Region{RegionFillerAggressive: aggressive, RegionCustomFillers: custom}
	if err := RegisterStandardRules(engine.Graph, func(name string) Region { return regions[name] }, engine.Models); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, r := range []*fakeRegion{aggressive, custom} {
		if _, enabled := r.state(); enabled {
			t.Fatalf("%s enabled while filler removal is off", r.name)
		}
	}
}
