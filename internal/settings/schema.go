package settings

import (
	"strings"
	"time"
)

// FieldKind decides how edits of a field are persisted.
type FieldKind int

const (
	KindCheckbox FieldKind = iota
	KindDropdown
	KindSlider
	KindText
	KindList
	KindCollection
	KindHotkey
)

func (k FieldKind) String() string {
	switch k {
	case KindCheckbox:
		return "checkbox"
	case KindDropdown:
		return "dropdown"
	case KindSlider:
		return "slider"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindCollection:
		return "collection"
	case KindHotkey:
		return "hotkey"
	default:
		return "unknown"
	}
}

// Debounced reports whether edits of this kind are coalesced before saving.
func (k FieldKind) Debounced() bool {
	return k == KindText
}

const DefaultTextDebounce = 500 * time.Millisecond

// Field describes one top-level setting.
type Field struct {
	Key      string
	Kind     FieldKind
	Default  any
	Options  []string
	Debounce time.Duration
	ReadOnly bool
}

// Schema is the static list of known settings.
type Schema struct {
	fields   map[string]Field
	order    []string
	defaults Tree
}

func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields:   make(map[string]Field, len(fields)),
		defaults: Tree{},
	}
	for _, f := range fields {
		if f.Kind == KindText && f.Debounce <= 0 {
			f.Debounce = DefaultTextDebounce
		}
		if _, exists := s.fields[f.Key]; !exists {
			s.order = append(s.order, f.Key)
		}
		s.fields[f.Key] = f
		s.defaults[f.Key] = cloneValue(f.Default)
	}

	return s
}

// Field returns the schema entry owning a dotted path.
func (s *Schema) Field(path string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	f, ok := s.fields[RootKey(path)]

	return f, ok
}

// Default returns the default value for a dotted path, if one is known.
func (s *Schema) Default(path string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.defaults.Lookup(path)
	if !ok {
		return nil, false
	}

	return cloneValue(v), true
}

// Defaults returns a copy of the full default tree.
func (s *Schema) Defaults() Tree {
	if s == nil {
		return Tree{}
	}

	return s.defaults.Clone()
}

// Keys returns the known keys in declaration order.
func (s *Schema) Keys() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.order...)
}

// DebounceFor returns the coalescing delay for a path, or zero when edits
// are saved immediately.
func (s *Schema) DebounceFor(path string) time.Duration {
	f, ok := s.Field(path)
	if !ok || !f.Kind.Debounced() {
		return 0
	}

	return f.Debounce
}

var bundledModels = []string{"tiny", "base"}

// IsBundledModel reports whether a speech model ships with the application.
func IsBundledModel(name string) bool {
	base := strings.TrimSuffix(strings.TrimSpace(name), ".en")
	for _, m := range bundledModels {
		if base == m {
			return true
		}
	}

	return false
}

// StandardSchema lists every setting known to the settings window.
func StandardSchema() *Schema {
	return NewSchema(
		Field{Key: "hotkey", Kind: KindHotkey, Default: map[string]any{"ctrl": true, "shift": true, "alt": false, "key": "space"}},
		Field{Key: "recording_mode", Kind: KindDropdown, Default: "push_to_talk", Options: []string{"push_to_talk", "auto_stop"}},
		Field{Key: "language", Kind: KindDropdown, Default: "en", Options: []string{"en", "auto", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "uk", "ja", "zh"}},
		Field{Key: "start_with_windows", Kind: KindCheckbox, Default: false},
		Field{Key: "onboarding_complete", Kind: KindCheckbox, Default: false},

		Field{Key: "input_device", Kind: KindDropdown, Default: nil},
		Field{Key: "sample_rate", Kind: KindDropdown, Default: float64(16000), Options: []string{"8000", "16000", "22050", "44100", "48000"}},
		Field{Key: "noise_gate_enabled", Kind: KindCheckbox, Default: true},
		Field{Key: "noise_gate_threshold_db", Kind: KindSlider, Default: float64(-40)},
		Field{Key: "audio_feedback", Kind: KindCheckbox, Default: true},
		Field{Key: "audio_feedback_volume", Kind: KindSlider, Default: float64(50)},
		Field{Key: "sound_processing", Kind: KindCheckbox, Default: true},
		Field{Key: "sound_success", Kind: KindCheckbox, Default: true},
		Field{Key: "sound_error", Kind: KindCheckbox, Default: true},
		Field{Key: "sound_command", Kind: KindCheckbox, Default: true},

		Field{Key: "model_size", Kind: KindDropdown, Default: "tiny", Options: []string{"tiny", "base", "small", "medium", "large-v3"}},
		Field{Key: "processing_mode", Kind: KindDropdown, Default: "auto", Options: []string{"auto", "cpu", "gpu-balanced", "gpu-quality"}},
		Field{Key: "silence_duration_sec", Kind: KindSlider, Default: 2.0},
		Field{Key: "translation_enabled", Kind: KindCheckbox, Default: false},
		Field{Key: "translation_source_language", Kind: KindDropdown, Default: "auto", Options: []string{"auto", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "uk", "ja", "zh"}},
		Field{Key: "custom_vocabulary", Kind: KindList, Default: []any{}},
		Field{Key: "downloaded_models", Kind: KindList, Default: []any{}, ReadOnly: true},

		Field{Key: "auto_paste", Kind: KindCheckbox, Default: true},
		Field{Key: "paste_mode", Kind: KindDropdown, Default: "clipboard", Options: []string{"clipboard", "direct"}},
		Field{Key: "voice_commands_enabled", Kind: KindCheckbox, Default: true},
		Field{Key: "scratch_that_enabled", Kind: KindCheckbox, Default: true},
		Field{Key: "filler_removal_enabled", Kind: KindCheckbox, Default: true},
		Field{Key: "filler_removal_aggressive", Kind: KindCheckbox, Default: false},
		Field{Key: "custom_fillers", Kind: KindList, Default: []any{}},
		Field{Key: "custom_dictionary", Kind: KindCollection, Default: []any{}},
		Field{Key: "custom_commands", Kind: KindCollection, Default: []any{}},

		Field{Key: "ai_cleanup_enabled", Kind: KindCheckbox, Default: false},
		Field{Key: "ollama_url", Kind: KindText, Default: "http://localhost:11434", Debounce: time.Second},
		Field{Key: "ollama_model", Kind: KindText, Default: "llama3.2:3b"},
		Field{Key: "ai_cleanup_mode", Kind: KindDropdown, Default: "grammar", Options: []string{"grammar", "formality", "both"}},
		Field{Key: "ai_formality_level", Kind: KindDropdown, Default: "professional", Options: []string{"casual", "professional", "formal"}},

		Field{Key: "preview_enabled", Kind: KindCheckbox, Default: true},
		Field{Key: "preview_position", Kind: KindDropdown, Default: "bottom_right", Options: []string{"top_left", "top_right", "bottom_left", "bottom_right"}},
		Field{Key: "preview_auto_hide_delay", Kind: KindSlider, Default: 2.0},
		Field{Key: "preview_theme", Kind: KindDropdown, Default: "dark", Options: []string{"dark", "light"}},
		Field{Key: "preview_font_size", Kind: KindSlider, Default: float64(11)},
		Field{Key: "auto_update", Kind: KindCheckbox, Default: false},
	)
}
