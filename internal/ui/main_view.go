package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
)

type mainView struct {
	content      fyne.CanvasObject
	navigator    *pageNavigator
	settings     *settingsView
	releaseBadge *releaseBadge
}

func buildMainView(
	dep RuntimeDependencies,
	binder *formBinder,
	window fyne.Window,
	initialVariant fyne.ThemeVariant,
) mainView {
	view := buildSettingsView(dep, binder, window)

	var badge *releaseBadge
	badge = newReleaseBadge(initialVariant, func(snapshot mtapp.UpdateSnapshot) {
		showReleaseDialog(window, snapshot, releaseActions{
			OpenURL: func(url string) error {
				return binder.engine.OpenURL(binder.ctx, url)
			},
			CheckAgain: func() {
				binder.runAsync(func() {
					if err := binder.engine.CheckUpdates(binder.ctx); err != nil {
						appLogger.Debug("update recheck rejected", "error", err)
					}
				})
			},
		}, badge.Dismiss)
	})

	nav := newPageNavigator(
		view.pages,
		pageOrder,
		dep.Data.LastTab,
		dep.Actions.OnTabSelected,
		badge.Button(),
	)

	right := container.NewBorder(nil, view.status.Object(), nil, nil, nav.Body())
	content := container.NewBorder(nil, nil, container.NewHBox(nav.Nav(), widget.NewSeparator()), nil, right)

	return mainView{
		content:      content,
		navigator:    nav,
		settings:     view,
		releaseBadge: badge,
	}
}
