package ui

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

// canvasRegion toggles a group of canvas objects for the visibility graph.
// Show/hide applies to the objects themselves; enable/disable walks into
// containers and toggles every disableable widget.
type canvasRegion struct {
	name    string
	objects []fyne.CanvasObject
	runOnUI func(func())

	mu      sync.Mutex
	visible bool
	enabled bool
}

func newCanvasRegion(name string, runOnUI func(func()), objects ...fyne.CanvasObject) *canvasRegion {
	if runOnUI == nil {
		runOnUI = fyne.Do
	}

	return &canvasRegion{name: name, objects: objects, runOnUI: runOnUI, visible: true, enabled: true}
}

func (r *canvasRegion) Name() string {
	return r.name
}

func (r *canvasRegion) Apply(effect settings.Effect, active bool) {
	r.mu.Lock()
	if effect == settings.ShowHide {
		r.visible = active
	} else {
		r.enabled = active
	}
	r.mu.Unlock()

	r.runOnUI(func() {
		for _, obj := range r.objects {
			if effect == settings.ShowHide {
				if active {
					obj.Show()
				} else {
					obj.Hide()
				}

				continue
			}
			setEnabled(obj, active)
		}
	})
}

// Visible and Enabled report the last applied state.
func (r *canvasRegion) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.visible
}

func (r *canvasRegion) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.enabled
}

func setEnabled(obj fyne.CanvasObject, enabled bool) {
	switch o := obj.(type) {
	case fyne.Disableable:
		if enabled {
			o.Enable()
		} else {
			o.Disable()
		}
	case *fyne.Container:
		for _, child := range o.Objects {
			setEnabled(child, enabled)
		}
	}
}

// regionSet resolves region names registered by the form builder.
type regionSet struct {
	runOnUI func(func())
	regions map[string]*canvasRegion
}

func newRegionSet(runOnUI func(func())) *regionSet {
	return &regionSet{runOnUI: runOnUI, regions: make(map[string]*canvasRegion)}
}

func (s *regionSet) add(name string, objects ...fyne.CanvasObject) {
	if existing, ok := s.regions[name]; ok {
		existing.objects = append(existing.objects, objects...)

		return
	}
	s.regions[name] = newCanvasRegion(name, s.runOnUI, objects...)
}

func (s *regionSet) get(name string) *canvasRegion {
	return s.regions[name]
}

// Resolve implements settings.RegionResolver.
func (s *regionSet) Resolve(name string) settings.Region {
	region, ok := s.regions[name]
	if !ok {
		appLogger.Warn("visibility rule references unknown region", "region", name)

		return nil
	}

	return region
}
