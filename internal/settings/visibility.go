package settings

import (
	"fmt"
	"log/slog"
	"sync"
)

// Effect is the way a rule toggles its regions.
type Effect int

const (
	ShowHide Effect = iota
	EnableDisable
)

func (e Effect) String() string {
	if e == EnableDisable {
		return "enable/disable"
	}

	return "show/hide"
}

// Region is a group of controls a rule can toggle.
type Region interface {
	Name() string
	Apply(effect Effect, active bool)
}

// Predicate decides from the driver value whether regions are active.
type Predicate func(value any) bool

type Rule struct {
	Driver    string
	Predicate Predicate
	Regions   []Region
	Effect    Effect
}

type valueSource interface {
	Get(path string) any
}

// VisibilityGraph maps driver settings to the regions they control. Rules
// are registered at startup; the first EvaluateAll seals the graph.
type VisibilityGraph struct {
	source valueSource
	logger *slog.Logger

	mu     sync.RWMutex
	rules  map[string][]Rule
	order  []string
	sealed bool
}

func NewVisibilityGraph(source valueSource, logger *slog.Logger) *VisibilityGraph {
	if logger == nil {
		logger = slog.Default().With("component", "settings.visibility")
	}

	return &VisibilityGraph{
		source: source,
		logger: logger,
		rules:  make(map[string][]Rule),
	}
}

func (g *VisibilityGraph) Register(rule Rule) error {
	if rule.Driver == "" {
		return fmt.Errorf("register visibility rule: empty driver")
	}
	if rule.Predicate == nil {
		return fmt.Errorf("register visibility rule %q: nil predicate", rule.Driver)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return ErrGraphSealed
	}
	if _, ok := g.rules[rule.Driver]; !ok {
		g.order = append(g.order, rule.Driver)
	}
	g.rules[rule.Driver] = append(g.rules[rule.Driver], rule)

	return nil
}

// Evaluate applies the rules of one driver and returns how many regions
// were updated.
func (g *VisibilityGraph) Evaluate(driver string) int {
	g.mu.RLock()
	rules := append([]Rule(nil), g.rules[driver]...)
	g.mu.RUnlock()
	if len(rules) == 0 {
		return 0
	}

	value := g.source.Get(driver)
	applied := 0
	for _, rule := range rules {
		active := rule.Predicate(value)
		for _, region := range rule.Regions {
			if region == nil {
				continue
			}
			region.Apply(rule.Effect, active)
			applied++
		}
		g.logger.Debug("visibility evaluated", "driver", driver, "effect", rule.Effect.String(), "active", active)
	}

	return applied
}

// EvaluateAll applies every rule and seals the graph.
func (g *VisibilityGraph) EvaluateAll() int {
	g.mu.Lock()
	g.sealed = true
	drivers := append([]string(nil), g.order...)
	g.mu.Unlock()

	total := 0
	for _, driver := range drivers {
		total += g.Evaluate(driver)
	}

	return total
}

// IsTrue is active when the driver is boolean true.
func IsTrue(value any) bool {
	b, _ := value.(bool)

	return b
}

// NotEqual is active when the driver is anything but want.
func NotEqual(want string) Predicate {
	return func(value any) bool {
		s, _ := value.(string)

		return s != want
	}
}

// RegionResolver finds a region by name. Unknown names resolve to nil.
type RegionResolver func(name string) Region

// Standard region names used by the settings window.
const (
	RegionNoiseGateOptions     = "noise-gate-options"
	RegionAudioFeedbackOptions = "audio-feedback-options"
	RegionTranslationLanguage  = "translation-language-row"
	RegionScratchThat          = "scratch-that-row"
	RegionFillerAggressive     = "filler-aggressive-row"
	RegionCustomFillers        = "custom-fillers-section"
	RegionAICleanupOptions     = "ai-cleanup-options"
	RegionFormality            = "formality-row"
	RegionPreviewOptions       = "preview-options"
	RegionDownloadModel        = "download-model-button"
)

// RegisterStandardRules installs the rules of the settings window.
func RegisterStandardRules(g *VisibilityGraph, resolve RegionResolver, models *ModelCatalog) error {
	regions := func(names ...string) []Region {
		out := make([]Region, 0, len(names))
		for _, name := range names {
			if r := resolve(name); r != nil {
				out = append(out, r)
			}
		}

		return out
	}

	rules := []Rule{
		{Driver: "noise_gate_enabled", Predicate: IsTrue, Regions: regions(RegionNoiseGateOptions), Effect: ShowHide},
		{Driver: "audio_feedback", Predicate: IsTrue, Regions: regions(RegionAudioFeedbackOptions), Effect: EnableDisable},
		{Driver: "translation_enabled", Predicate: IsTrue, Regions: regions(RegionTranslationLanguage), Effect: EnableDisable},
		{Driver: "voice_commands_enabled", Predicate: IsTrue, Regions: regions(RegionScratchThat), Effect: EnableDisable},
		{Driver: "filler_removal_enabled", Predicate: IsTrue, Regions: regions(RegionFillerAggressive, RegionCustomFillers), Effect: EnableDisable},
		{Driver: "ai_cleanup_enabled", Predicate: IsTrue, Regions: regions(RegionAICleanupOptions), Effect: EnableDisable},
		{Driver: "ai_cleanup_mode", Predicate: NotEqual("grammar"), Regions: regions(RegionFormality), Effect: ShowHide},
		{Driver: "preview_enabled", Predicate: IsTrue, Regions: regions(RegionPreviewOptions), Effect: EnableDisable},
		{Driver: "model_size", Predicate: models.NeedsDownload, Regions: regions(RegionDownloadModel), Effect: ShowHide},
	}
	for _, rule := range rules {
		if err := g.Register(rule); err != nil {
			return err
		}
	}

	return nil
}
