package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

// formBinder connects widgets to engine settings. Widget callbacks save
// through the engine; refresh pushes store values back into widgets without
// triggering saves.
type formBinder struct {
	ctx      context.Context
	engine   *settings.Engine
	regions  *regionSet
	runOnUI  func(func())
	runAsync func(func())

	refreshers []func()
	loading    bool
}

func newFormBinder(ctx context.Context, engine *settings.Engine, hooks UIHooks) *formBinder {
	runOnUI := hooks.RunOnUI
	if runOnUI == nil {
		runOnUI = fyne.Do
	}
	runAsync := hooks.RunAsync
	if runAsync == nil {
		runAsync = func(fn func()) {
			go fn()
		}
	}

	return &formBinder{
		ctx:      ctx,
		engine:   engine,
		regions:  newRegionSet(runOnUI),
		runOnUI:  runOnUI,
		runAsync: runAsync,
	}
}

// refresh re-reads every bound widget from the store. Must run on the UI
// goroutine.
func (b *formBinder) refresh() {
	b.loading = true
	defer func() { b.loading = false }()
	for _, fn := range b.refreshers {
		fn()
	}
}

func (b *formBinder) onRefresh(fn func()) {
	b.refreshers = append(b.refreshers, fn)
}

func (b *formBinder) save(key string, value any) {
	if b.loading {
		return
	}
	b.runAsync(func() {
		if err := b.engine.Save(b.ctx, key, value); err != nil {
			appLogger.Debug("setting save failed", "key", key, "error", err)
		}
	})
}

func (b *formBinder) check(key, label string) *widget.Check {
	check := widget.NewCheck(label, func(value bool) {
		b.save(key, value)
	})
	b.onRefresh(func() {
		check.SetChecked(b.engine.Store.Bool(key))
	})

	return check
}

// choice binds a dropdown. labels maps stored values to display text; values
// missing from labels are shown as is.
func (b *formBinder) choice(key string, labels map[string]string) *widget.Select {
	field, _ := b.engine.Store.Schema().Field(key)
	options := make([]string, 0, len(field.Options))
	toValue := make(map[string]string, len(field.Options))
	for _, value := range field.Options {
		label := value
		if l, ok := labels[value]; ok {
			label = l
		}
		options = append(options, label)
		toValue[label] = value
	}

	numeric := false
	if _, ok := field.Default.(float64); ok {
		numeric = true
	}

	sel := widget.NewSelect(options, func(label string) {
		value, ok := toValue[label]
		if !ok {
			return
		}
		if numeric {
			n, err := strconv.Atoi(value)
			if err != nil {
				appLogger.Warn("ignoring non-numeric option", "key", key, "value", value)

				return
			}
			b.save(key, n)

			return
		}
		b.save(key, value)
	})
	b.onRefresh(func() {
		current := storedOption(b.engine.Store.Get(key))
		label := current
		if l, ok := labels[current]; ok {
			label = l
		}
		sel.SetSelected(label)
	})

	return sel
}

func storedOption(v any) string {
	if f, ok := settings.AsFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s, _ := v.(string)

	return s
}

// sliderSpec describes a numeric slider. Display converts the stored value
// to slider units and Store the other way round.
type sliderSpec struct {
	Min, Max, Step float64
	Format         func(float64) string
	Display        func(float64) float64
	Store          func(float64) any
}

func (b *formBinder) slider(key string, spec sliderSpec) fyne.CanvasObject {
	if spec.Format == nil {
		spec.Format = func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	}
	if spec.Display == nil {
		spec.Display = func(v float64) float64 { return v }
	}
	if spec.Store == nil {
		spec.Store = func(v float64) any { return v }
	}

	value := widget.NewLabel("")
	slider := widget.NewSlider(spec.Min, spec.Max)
	slider.Step = spec.Step
	slider.OnChanged = func(v float64) {
		value.SetText(spec.Format(v))
	}
	slider.OnChangeEnded = func(v float64) {
		b.save(key, spec.Store(v))
	}
	b.onRefresh(func() {
		v := spec.Display(b.engine.Store.Float(key))
		slider.SetValue(v)
		value.SetText(spec.Format(slider.Value))
	})

	return container.NewBorder(nil, nil, nil, value, slider)
}

// entry binds a text field. Saves are debounced by the persistence layer.
func (b *formBinder) entry(key, placeholder string) *widget.Entry {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(placeholder)
	entry.OnChanged = func(text string) {
		b.save(key, text)
	}
	b.onRefresh(func() {
		if text := b.engine.Store.String(key); entry.Text != text {
			entry.SetText(text)
		}
	})

	return entry
}

const defaultDeviceLabel = "System Default"

// deviceChoice lists audio inputs from the service. The stored value is
// {"name": id}; saving sends the bare id or "" for the system default.
func (b *formBinder) deviceChoice() fyne.CanvasObject {
	ids := map[string]string{defaultDeviceLabel: ""}
	sel := widget.NewSelect([]string{defaultDeviceLabel}, func(label string) {
		id, ok := ids[label]
		if !ok {
			return
		}
		b.save("input_device", id)
	})

	selectStored := func() {
		stored := storedDeviceName(b.engine.Store.Get("input_device"))
		for label, id := range ids {
			if id == stored {
				sel.SetSelected(label)

				return
			}
		}
		if stored != "" {
			// Device saved earlier but not currently connected.
			ids[stored] = stored
			sel.Options = append(sel.Options, stored)
			sel.SetSelected(stored)

			return
		}
		sel.SetSelected(defaultDeviceLabel)
	}

	reload := func() {
		b.runAsync(func() {
			devices, err := b.engine.Devices(b.ctx)
			if err != nil {
				return
			}
			b.runOnUI(func() {
				next := map[string]string{}
				options := make([]string, 0, len(devices))
				for _, d := range devices {
					label := d.Name
					id := ""
					if !d.IsDefault() {
						id = *d.ID
					} else if label == "" {
						label = defaultDeviceLabel
					}
					if _, dup := next[label]; dup {
						label = fmt.Sprintf("%s (%s)", label, id)
					}
					next[label] = id
					options = append(options, label)
				}
				if len(options) == 0 {
					next[defaultDeviceLabel] = ""
					options = append(options, defaultDeviceLabel)
				}
				ids = next
				prev := b.loading
				b.loading = true
				sel.SetOptions(options)
				selectStored()
				b.loading = prev
			})
		})
	}

	refresh := widget.NewButton("Refresh", reload)
	b.onRefresh(func() {
		selectStored()
		reload()
	})

	return container.NewBorder(nil, nil, nil, refresh, sel)
}

func storedDeviceName(v any) string {
	switch d := v.(type) {
	case map[string]any:
		name, _ := d["name"].(string)

		return name
	case string:
		return d
	default:
		return ""
	}
}

// region registers objects under a visibility region name and returns them
// wrapped in a single container.
func (b *formBinder) region(name string, objects ...fyne.CanvasObject) *fyne.Container {
	box := container.NewVBox(objects...)
	b.regions.add(name, box)

	return box
}

func formRow(label string, obj fyne.CanvasObject) *fyne.Container {
	return container.NewBorder(nil, nil, widget.NewLabel(label), nil, obj)
}

func formatPercent(v float64) string {
	return strconv.Itoa(int(v)) + "%"
}

func formatSeconds(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + " s"
}
