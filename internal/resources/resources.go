// Package resources holds embedded icons for the settings window and tray.
package resources

import (
	_ "embed"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

//go:embed icons/dark/app.svg
var darkApp []byte

//go:embed icons/light/app.svg
var lightApp []byte

//go:embed icons/dark/update_available.svg
var darkUpdateAvailable []byte

//go:embed icons/light/update_available.svg
var lightUpdateAvailable []byte

type UIIcon string

const (
	UIIconApp             UIIcon = "app"
	UIIconUpdateAvailable UIIcon = "update_available"
)

var darkIconResources = map[UIIcon]fyne.Resource{
	UIIconApp:             fyne.NewStaticResource("resources/icons/dark/app.svg", darkApp),
	UIIconUpdateAvailable: fyne.NewStaticResource("resources/icons/dark/update_available.svg", darkUpdateAvailable),
}

var lightIconResources = map[UIIcon]fyne.Resource{
	UIIconApp:             fyne.NewStaticResource("resources/icons/light/app.svg", lightApp),
	UIIconUpdateAvailable: fyne.NewStaticResource("resources/icons/light/update_available.svg", lightUpdateAvailable),
}

// UIIconResource returns the icon drawn for variant. Unknown variants use the
// dark set; unknown icons return nil.
func UIIconResource(icon UIIcon, variant fyne.ThemeVariant) fyne.Resource {
	if variant == theme.VariantLight {
		if res, ok := lightIconResources[icon]; ok {
			return res
		}
	}
	if res, ok := darkIconResources[icon]; ok {
		return res
	}

	return nil
}

func AppIconResource(variant fyne.ThemeVariant) fyne.Resource {
	return UIIconResource(UIIconApp, variant)
}

// TrayIconResource is the app icon; the SVG scales to the tray size.
func TrayIconResource(variant fyne.ThemeVariant) fyne.Resource {
	return UIIconResource(UIIconApp, variant)
}
