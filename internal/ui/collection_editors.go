package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

// wordListEditor adds and removes single words. Each mutation is saved
// immediately.
type wordListEditor struct {
	binder *formBinder
	words  *settings.Collection[string]
	items  []string
	entry  *widget.Entry
	list   *widget.List
	root   *fyne.Container
}

func (b *formBinder) wordList(words *settings.Collection[string], placeholder string) *wordListEditor {
	e := &wordListEditor{binder: b, words: words}
	e.entry = widget.NewEntry()
	e.entry.SetPlaceHolder(placeholder)
	e.entry.OnSubmitted = func(string) { e.add() }

	e.list = widget.NewList(
		func() int { return len(e.items) },
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewButtonWithIcon("", theme.DeleteIcon(), nil), widget.NewLabel(""))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(e.items) {
				return
			}
			word := e.items[id]
			row := obj.(*fyne.Container)
			row.Objects[0].(*widget.Label).SetText(word)
			row.Objects[1].(*widget.Button).OnTapped = func() { e.remove(word) }
		},
	)

	addButton := widget.NewButtonWithIcon("Add", theme.ContentAddIcon(), e.add)
	listArea := container.NewGridWrap(fyne.NewSize(360, 140), e.list)
	e.root = container.NewVBox(container.NewBorder(nil, nil, nil, addButton, e.entry), listArea)

	b.onRefresh(e.reload)

	return e
}

func (e *wordListEditor) Object() fyne.CanvasObject {
	return e.root
}

func (e *wordListEditor) reload() {
	e.items = e.words.Items()
	e.list.Refresh()
}

func (e *wordListEditor) add() {
	word := strings.TrimSpace(e.entry.Text)
	if word == "" {
		return
	}
	e.binder.runAsync(func() {
		added, err := e.words.Add(e.binder.ctx, word)
		if err != nil {
			appLogger.Debug("word list add failed", "key", e.words.Key(), "error", err)

			return
		}
		e.binder.runOnUI(func() {
			if added {
				e.entry.SetText("")
			}
			e.reload()
		})
	})
}

func (e *wordListEditor) remove(word string) {
	e.binder.runAsync(func() {
		if _, err := e.words.Remove(e.binder.ctx, word); err != nil {
			appLogger.Debug("word list remove failed", "key", e.words.Key(), "error", err)

			return
		}
		e.binder.runOnUI(e.reload)
	})
}

// pairEditor lists two-column rows and edits them in a modal draft that is
// saved in one write when confirmed.
type pairEditor struct {
	binder  *formBinder
	rows    *settings.Collection[settings.Row]
	title   string
	columns [2]string
	labels  [2]string
	summary *widget.Label
	button  *widget.Button
	root    *fyne.Container
	window  func() fyne.Window
	onError func(error, fyne.Window)
}

func (b *formBinder) pairList(
	rows *settings.Collection[settings.Row],
	title string,
	columns, labels [2]string,
	window func() fyne.Window,
	onError func(error, fyne.Window),
) *pairEditor {
	e := &pairEditor{
		binder:  b,
		rows:    rows,
		title:   title,
		columns: columns,
		labels:  labels,
		summary: widget.NewLabel(""),
		window:  window,
		onError: onError,
	}
	e.summary.Wrapping = fyne.TextWrapWord
	e.button = widget.NewButton("Edit "+title+"...", e.open)
	e.root = container.NewVBox(e.summary, container.NewHBox(e.button))

	b.onRefresh(e.reload)

	return e
}

func (e *pairEditor) Object() fyne.CanvasObject {
	return e.root
}

func (e *pairEditor) reload() {
	items := e.rows.Items()
	if len(items) == 0 {
		e.summary.SetText("No entries.")

		return
	}
	lines := make([]string, 0, len(items))
	for _, row := range items {
		lines = append(lines, row[e.columns[0]]+" → "+row[e.columns[1]])
	}
	e.summary.SetText(strings.Join(lines, "\n"))
}

func (e *pairEditor) open() {
	window := e.window()
	if window == nil {
		return
	}
	draft := e.rows.Open()
	form := newDraftForm(draft, e.columns, e.labels)

	content := container.NewBorder(
		nil,
		widget.NewButtonWithIcon("Add Row", theme.ContentAddIcon(), form.addRow),
		nil, nil,
		container.NewVScroll(form.root),
	)
	d := dialog.NewCustomConfirm(e.title, "Save", "Cancel", content, func(save bool) {
		if !save {
			draft.Discard()

			return
		}
		e.binder.runAsync(func() {
			_, err := draft.Commit(e.binder.ctx)
			e.binder.runOnUI(func() {
				if err != nil && e.onError != nil {
					e.onError(err, window)
				}
				e.reload()
			})
		})
	}, window)
	d.Resize(fyne.NewSize(560, 420))
	d.Show()
}

// draftForm renders draft rows as entry pairs.
type draftForm struct {
	draft   *settings.Draft[settings.Row]
	columns [2]string
	labels  [2]string
	root    *fyne.Container
}

func newDraftForm(draft *settings.Draft[settings.Row], columns, labels [2]string) *draftForm {
	f := &draftForm{draft: draft, columns: columns, labels: labels, root: container.NewVBox()}
	f.rebuild()

	return f
}

func (f *draftForm) rebuild() {
	f.root.RemoveAll()
	for i, row := range f.draft.Rows() {
		index := i
		cells := make([]fyne.CanvasObject, 0, len(f.columns))
		for c, column := range f.columns {
			field := column
			entry := widget.NewEntry()
			entry.SetPlaceHolder(f.labels[c])
			entry.SetText(row[field])
			entry.OnChanged = func(text string) {
				if err := f.draft.EditCell(index, field, text); err != nil {
					appLogger.Debug("draft edit rejected", "field", field, "error", err)
				}
			}
			cells = append(cells, entry)
		}
		remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
			if err := f.draft.RemoveRow(index); err != nil {
				appLogger.Debug("draft row remove failed", "error", err)

				return
			}
			f.rebuild()
		})
		f.root.Add(container.NewBorder(nil, nil, nil, remove, container.NewGridWithColumns(2, cells...)))
	}
	f.root.Refresh()
}

func (f *draftForm) addRow() {
	if _, err := f.draft.AddRow(); err != nil {
		appLogger.Debug("draft row add failed", "error", err)

		return
	}
	f.rebuild()
}
