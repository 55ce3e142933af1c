package ui

import (
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// pageNavigator shows one settings page at a time with a nav button per
// page down the left edge. Pages missing from the map are skipped.
type pageNavigator struct {
	pages    map[string]fyne.CanvasObject
	names    []string
	buttons  map[string]*widget.Button
	current  string
	onSelect func(name string)

	nav   *fyne.Container
	stack *fyne.Container
	title *widget.Label
}

// newPageNavigator opens initial, or the first page when initial names no
// page. onSelect runs after every switch made through Select.
func newPageNavigator(
	pages map[string]fyne.CanvasObject,
	order []string,
	initial string,
	onSelect func(name string),
	footer fyne.CanvasObject,
) *pageNavigator {
	n := &pageNavigator{
		pages:    pages,
		buttons:  make(map[string]*widget.Button, len(order)),
		onSelect: onSelect,
		nav:      container.NewVBox(),
		stack:    container.NewStack(),
		title:    widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	}
	for _, name := range order {
		page := pages[name]
		if page == nil {
			continue
		}
		n.names = append(n.names, name)
		page.Hide()
		n.stack.Add(page)

		target := name
		button := widget.NewButton(name, func() { n.Select(target) })
		button.Alignment = widget.ButtonAlignLeading
		n.buttons[name] = button
		n.nav.Add(button)
	}
	n.nav.Add(layout.NewSpacer())
	if footer != nil {
		n.nav.Add(footer)
	}

	if !slices.Contains(n.names, initial) && len(n.names) > 0 {
		initial = n.names[0]
	}
	n.show(initial)

	return n
}

// Nav is the button column.
func (n *pageNavigator) Nav() fyne.CanvasObject {
	return n.nav
}

// Body is the active page under its title.
func (n *pageNavigator) Body() fyne.CanvasObject {
	return container.NewBorder(n.title, nil, nil, nil, n.stack)
}

func (n *pageNavigator) Current() string {
	return n.current
}

func (n *pageNavigator) Select(name string) {
	if name == n.current || n.pages[name] == nil || n.buttons[name] == nil {
		return
	}
	appLogger.Debug("switching settings page", "from", n.current, "to", name)
	n.show(name)
	if n.onSelect != nil {
		n.onSelect(name)
	}
}

func (n *pageNavigator) show(name string) {
	if page := n.pages[n.current]; page != nil {
		page.Hide()
	}
	n.current = name
	if page := n.pages[name]; page != nil {
		page.Show()
	}
	n.title.SetText(name)
	for page, button := range n.buttons {
		button.Importance = widget.LowImportance
		if page == name {
			button.Importance = widget.HighImportance
		}
		button.Refresh()
	}
	n.stack.Refresh()
}
