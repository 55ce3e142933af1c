package ui

import (
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/resources"
)

// releaseActions are what the release dialog can do besides closing.
type releaseActions struct {
	OpenURL    func(url string) error
	CheckAgain func()
}

// releaseBadge is the sidebar button announcing a newer release. Choosing
// "Later" in its dialog hides it until a different version is published.
type releaseBadge struct {
	button    *widget.Button
	latest    mtapp.UpdateSnapshot
	dismissed string
	onOpen    func(mtapp.UpdateSnapshot)
}

func newReleaseBadge(variant fyne.ThemeVariant, onOpen func(mtapp.UpdateSnapshot)) *releaseBadge {
	b := &releaseBadge{onOpen: onOpen}
	b.button = widget.NewButtonWithIcon("", resources.UIIconResource(resources.UIIconUpdateAvailable, variant), b.open)
	b.button.Importance = widget.HighImportance
	b.render()

	return b
}

func (b *releaseBadge) Button() *widget.Button {
	return b.button
}

func (b *releaseBadge) ApplyTheme(variant fyne.ThemeVariant) {
	b.button.SetIcon(resources.UIIconResource(resources.UIIconUpdateAvailable, variant))
}

func (b *releaseBadge) ApplySnapshot(snapshot mtapp.UpdateSnapshot) {
	if snapshot.LatestVersion != b.latest.LatestVersion || snapshot.UpdateAvailable != b.latest.UpdateAvailable {
		appLogger.Info(
			"release status changed",
			"current_version", strings.TrimSpace(snapshot.CurrentVersion),
			"latest_version", strings.TrimSpace(snapshot.LatestVersion),
			"update_available", snapshot.UpdateAvailable,
		)
	}
	b.latest = snapshot
	b.render()
}

// Dismiss hides the badge for the release currently shown.
func (b *releaseBadge) Dismiss() {
	b.dismissed = strings.TrimSpace(b.latest.LatestVersion)
	b.render()
}

func (b *releaseBadge) pending() bool {
	version := strings.TrimSpace(b.latest.LatestVersion)

	return b.latest.UpdateAvailable && version != "" && version != b.dismissed
}

func (b *releaseBadge) render() {
	if !b.pending() {
		b.button.SetText("")
		b.button.Hide()

		return
	}
	b.button.SetText("Update " + strings.TrimSpace(b.latest.LatestVersion))
	b.button.Show()
}

func (b *releaseBadge) open() {
	if !b.pending() || b.onOpen == nil {
		return
	}
	b.onOpen(b.latest)
}

func showReleaseDialog(window fyne.Window, snapshot mtapp.UpdateSnapshot, actions releaseActions, onLater func()) {
	if window == nil {
		return
	}

	summary := widget.NewLabel(releaseSummary(snapshot))
	summary.Wrapping = fyne.TextWrapWord
	checked := widget.NewLabel(lastCheckedText(snapshot.CheckedAt))

	notes := widget.NewRichTextFromMarkdown(releaseNotesMarkdown(snapshot))
	notes.Wrapping = fyne.TextWrapWord
	notesScroll := container.NewVScroll(notes)
	notesScroll.SetMinSize(fyne.NewSize(0, 260))

	var d *dialog.CustomDialog
	pageURL := strings.TrimSpace(snapshot.DownloadURL)
	openPage := widget.NewButton("Open Release Page", func() {
		if err := actions.OpenURL(pageURL); err != nil {
			dialog.ShowError(err, window)
		}
	})
	openPage.Importance = widget.HighImportance
	if pageURL == "" || actions.OpenURL == nil {
		openPage.Disable()
	}
	checkAgain := widget.NewButton("Check Again", func() {
		d.Hide()
		actions.CheckAgain()
	})
	if actions.CheckAgain == nil {
		checkAgain.Disable()
	}
	later := widget.NewButton("Later", func() {
		d.Hide()
		if onLater != nil {
			onLater()
		}
	})

	content := container.NewBorder(
		container.NewVBox(summary, checked),
		container.NewHBox(openPage, checkAgain, later),
		nil, nil,
		notesScroll,
	)
	d = dialog.NewCustomWithoutButtons("Update available", content, window)
	d.Resize(fyne.NewSize(600, 440))
	d.Show()
}

func releaseSummary(snapshot mtapp.UpdateSnapshot) string {
	return "MurmurTone " + versionOrUnknown(snapshot.LatestVersion) +
		" is available. You have " + versionOrUnknown(snapshot.CurrentVersion) + "."
}

func lastCheckedText(at time.Time) string {
	if at.IsZero() {
		return "Not checked yet."
	}

	return "Last checked " + at.Local().Format("Jan 2, 15:04") + "."
}

func versionOrUnknown(version string) string {
	if v := strings.TrimSpace(version); v != "" {
		return v
	}

	return "unknown"
}

func releaseNotesMarkdown(snapshot mtapp.UpdateSnapshot) string {
	body := strings.TrimSpace(snapshot.ReleaseNotes)
	if body == "" {
		return "_The release has no notes._"
	}

	return "## What's new in " + versionOrUnknown(snapshot.LatestVersion) + "\n\n" + body
}
