package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/hotkey"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const (
	pageGeneral     = "General"
	pageAudio       = "Audio"
	pageRecognition = "Recognition"
	pageText        = "Text"
	pageAI          = "AI Cleanup"
	pagePreview     = "Preview"
	pageApp         = "App"
	pageAbout       = "About"
)

var pageOrder = []string{pageGeneral, pageAudio, pageRecognition, pageText, pageAI, pagePreview, pageApp, pageAbout}

var languageLabels = map[string]string{
	"en": "English", "auto": "Auto-detect", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "nl": "Dutch", "pl": "Polish", "ru": "Russian",
	"uk": "Ukrainian", "ja": "Japanese", "zh": "Chinese",
}

// settingsView holds the pages and the widgets that react to bus signals.
type settingsView struct {
	binder  *formBinder
	pages   map[string]fyne.CanvasObject
	tasks   []*taskView
	mic     *micMeter
	status  *statusBar
	capture *hotkey.Capture
}

func buildSettingsView(dep RuntimeDependencies, binder *formBinder, window fyne.Window) *settingsView {
	engine := binder.engine
	hooks := dep.UIHooks
	if hooks.ShowErrorDialog == nil {
		hooks.ShowErrorDialog = showErrorDialog
	}
	if hooks.ShowConfirm == nil {
		hooks.ShowConfirm = showConfirmDialog
	}
	currentWindow := func() fyne.Window { return window }

	v := &settingsView{
		binder: binder,
		pages:  make(map[string]fyne.CanvasObject, len(pageOrder)),
		status: newStatusBar(binder.runOnUI),
	}

	startTask := func(start func() error) func() {
		return func() {
			binder.runAsync(func() {
				if err := start(); err != nil {
					appLogger.Debug("task start rejected", "error", err)
				}
			})
		}
	}
	newTask := func(kind settings.TaskKind, label string, start func() error) *taskView {
		view := newTaskView(kind, label, startTask(start))
		v.tasks = append(v.tasks, view)

		return view
	}

	// General
	hotkeyLabel := widget.NewLabel(hotkey.Default().String())
	v.capture = hotkey.NewCapture(newFyneKeySource(window.Canvas()), hotkey.Default(),
		func(text string) { hotkeyLabel.SetText(text) },
		func(chord hotkey.Chord) { binder.save("hotkey", chord.Value()) },
	)
	binder.onRefresh(func() {
		if chord, ok := hotkey.FromValue(engine.Store.Get("hotkey")); ok {
			v.capture.SetCurrent(chord)
		}
	})
	hotkeyRow := container.NewBorder(nil, nil, nil, container.NewHBox(
		widget.NewButton("Change", func() { v.capture.Begin() }),
		widget.NewButton("Cancel", v.capture.Cancel),
	), hotkeyLabel)

	v.pages[pageGeneral] = page(
		formRow("Hotkey", hotkeyRow),
		formRow("Recording mode", binder.choice("recording_mode", map[string]string{
			"push_to_talk": "Push to talk",
			"auto_stop":    "Auto-stop on silence",
		})),
		formRow("Language", binder.choice("language", languageLabels)),
		binder.check("start_with_windows", "Start with system"),
	)

	// Audio
	v.mic = newMicMeter(func() {
		binder.runAsync(func() {
			if err := engine.Mic.Toggle(binder.ctx); err != nil {
				appLogger.Debug("mic test toggle failed", "error", err)
			}
		})
	})
	noiseGate := binder.region(settings.RegionNoiseGateOptions,
		formRow("Threshold", binder.slider("noise_gate_threshold_db", sliderSpec{
			Min: settings.MinMeterDB, Max: settings.MaxMeterDB, Step: 1,
			Format: func(v float64) string { return strconv.Itoa(int(v)) + " dB" },
		})),
	)
	feedback := binder.region(settings.RegionAudioFeedbackOptions,
		formRow("Volume", binder.slider("audio_feedback_volume", sliderSpec{
			Min: 0, Max: 100, Step: 1,
			Format:  formatPercent,
			Display: settings.NormalizeVolume,
			Store:   func(v float64) any { return int(v) },
		})),
		binder.check("sound_processing", "Processing sound"),
		binder.check("sound_success", "Success sound"),
		binder.check("sound_error", "Error sound"),
		binder.check("sound_command", "Command sound"),
	)
	v.pages[pageAudio] = page(
		formRow("Input device", binder.deviceChoice()),
		formRow("Sample rate", binder.choice("sample_rate", map[string]string{
			"8000": "8 kHz", "16000": "16 kHz", "22050": "22.05 kHz", "44100": "44.1 kHz", "48000": "48 kHz",
		})),
		v.mic.Object(),
		binder.check("noise_gate_enabled", "Noise gate"),
		noiseGate,
		binder.check("audio_feedback", "Audio feedback"),
		feedback,
	)

	// Recognition
	modelSelect := binder.choice("model_size", nil)
	download := newTask(settings.TaskDownloadModel, "Download Model", func() error {
		return engine.DownloadModel(binder.ctx, engine.Store.String("model_size"))
	})
	binder.regions.add(settings.RegionDownloadModel, download.Object())
	gpu := newTask(settings.TaskGPUInstall, "Install GPU Support", func() error {
		return engine.InstallGPUSupport(binder.ctx)
	})
	translation := binder.region(settings.RegionTranslationLanguage,
		formRow("Source language", binder.choice("translation_source_language", languageLabels)),
	)
	v.pages[pageRecognition] = page(
		formRow("Model", modelSelect),
		download.Object(),
		formRow("Processing", binder.choice("processing_mode", map[string]string{
			"auto": "Auto", "cpu": "CPU", "gpu-balanced": "GPU (balanced)", "gpu-quality": "GPU (quality)",
		})),
		gpu.Object(),
		formRow("Silence timeout", binder.slider("silence_duration_sec", sliderSpec{
			Min: 0.5, Max: 10, Step: 0.5, Format: formatSeconds,
		})),
		binder.check("translation_enabled", "Translate to English"),
		translation,
		widget.NewLabelWithStyle("Custom vocabulary", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		binder.wordList(engine.Vocabulary, "Add a word or phrase").Object(),
	)

	// Text
	scratch := binder.region(settings.RegionScratchThat, binder.check("scratch_that_enabled", `"Scratch that" deletes the last phrase`))
	aggressive := binder.region(settings.RegionFillerAggressive, binder.check("filler_removal_aggressive", "Aggressive filler removal"))
	fillers := binder.region(settings.RegionCustomFillers,
		widget.NewLabel("Custom fillers"),
		binder.wordList(engine.Fillers, "Add a filler word").Object(),
	)
	v.pages[pageText] = page(
		binder.check("auto_paste", "Paste text automatically"),
		formRow("Paste mode", binder.choice("paste_mode", map[string]string{
			"clipboard": "Clipboard", "direct": "Direct typing",
		})),
		binder.check("voice_commands_enabled", "Voice commands"),
		scratch,
		binder.check("filler_removal_enabled", "Remove filler words"),
		aggressive,
		fillers,
		widget.NewLabelWithStyle("Dictionary", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		binder.pairList(engine.Dictionary, "Dictionary", [2]string{"from", "to"}, [2]string{"Heard", "Replace with"}, currentWindow, hooks.ShowErrorDialog).Object(),
		widget.NewLabelWithStyle("Text shortcuts", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		binder.pairList(engine.Commands, "Text Shortcuts", [2]string{"trigger", "replacement"}, [2]string{"Trigger", "Replacement"}, currentWindow, hooks.ShowErrorDialog).Object(),
	)

	// AI cleanup
	ollama := newTask(settings.TaskOllamaTest, "Test Connection", func() error {
		return engine.TestOllama(binder.ctx)
	})
	formality := binder.region(settings.RegionFormality,
		formRow("Formality", binder.choice("ai_formality_level", map[string]string{
			"casual": "Casual", "professional": "Professional", "formal": "Formal",
		})),
	)
	aiOptions := binder.region(settings.RegionAICleanupOptions,
		formRow("Ollama URL", binder.entry("ollama_url", "http://localhost:11434")),
		ollama.Object(),
		formRow("Model", binder.entry("ollama_model", "llama3.2:3b")),
		formRow("Mode", binder.choice("ai_cleanup_mode", map[string]string{
			"grammar": "Grammar only", "formality": "Formality only", "both": "Grammar and formality",
		})),
		formality,
	)
	v.pages[pageAI] = page(
		binder.check("ai_cleanup_enabled", "Clean up text with a local model"),
		aiOptions,
	)

	// Preview
	previewOptions := binder.region(settings.RegionPreviewOptions,
		formRow("Position", binder.choice("preview_position", map[string]string{
			"top_left": "Top left", "top_right": "Top right", "bottom_left": "Bottom left", "bottom_right": "Bottom right",
		})),
		formRow("Auto-hide after", binder.slider("preview_auto_hide_delay", sliderSpec{
			Min: 0, Max: 10, Step: 0.5, Format: formatSeconds,
		})),
		formRow("Theme", binder.choice("preview_theme", map[string]string{"dark": "Dark", "light": "Light"})),
		formRow("Font size", binder.slider("preview_font_size", sliderSpec{
			Min: 8, Max: 24, Step: 1,
			Format: func(v float64) string { return strconv.Itoa(int(v)) + " pt" },
			Store:  func(v float64) any { return int(v) },
		})),
	)
	v.pages[pagePreview] = page(
		binder.check("preview_enabled", "Show transcription preview"),
		previewOptions,
	)

	// App preferences live in the local config file, not in the settings tree.
	v.pages[pageApp] = newAppPreferencesPage(dep, currentWindow)

	// About
	updates := newTask(settings.TaskCheckUpdates, "Check for Updates", func() error {
		return engine.CheckUpdates(binder.ctx)
	})
	openURL := func(url string) func() {
		return func() {
			binder.runAsync(func() {
				if err := engine.OpenURL(binder.ctx, url); err != nil {
					binder.runOnUI(func() { hooks.ShowErrorDialog(err, window) })
				}
			})
		}
	}
	reset := widget.NewButton("Reset to Defaults", func() {
		hooks.ShowConfirm("Reset settings", "Restore every setting to its default value?", func(ok bool) {
			if !ok {
				return
			}
			binder.runAsync(func() {
				if err := engine.ResetToDefaults(binder.ctx); err != nil {
					appLogger.Warn("reset to defaults failed", "error", err)
				}
			})
		}, window)
	})
	reset.Importance = widget.DangerImportance
	v.pages[pageAbout] = page(
		widget.NewLabelWithStyle(mtapp.DisplayName, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Version %s", dep.Data.Version)),
		container.NewHBox(
			widget.NewButton("Website", openURL(mtapp.WebsiteURL)),
			widget.NewButton("Source Code", openURL(mtapp.SourceURL)),
		),
		binder.check("auto_update", "Check for updates automatically"),
		updates.Object(),
		reset,
	)

	return v
}

func page(objects ...fyne.CanvasObject) fyne.CanvasObject {
	return container.NewVScroll(container.NewPadded(container.NewVBox(objects...)))
}

// handlers routes bus signals to the view.
func (v *settingsView) handlers() signalHandlers {
	return signalHandlers{
		OnSaveStatus: v.status.applySaveStatus,
		OnError:      v.status.applyError,
		OnNotice:     v.status.applyNotice,
		OnTaskProgress: func(p signals.TaskProgress) {
			for _, t := range v.tasks {
				t.applyProgress(p)
			}
		},
		OnTaskState: func(s signals.TaskState) {
			for _, t := range v.tasks {
				t.applyState(s)
			}
			v.mic.applyState(s)
		},
		OnAudioLevel: v.mic.applyLevel,
		OnReloaded: func(signals.Reloaded) {
			v.binder.refresh()
		},
	}
}
