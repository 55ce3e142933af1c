package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

// Saver writes one key immediately.
type Saver interface {
	SaveNow(ctx context.Context, key string, value any) error
}

type valueReader interface {
	Get(path string) any
}

// CollectionSpec describes how a list setting is edited.
type CollectionSpec[T any] struct {
	Key string
	// Decode turns one stored element into an item; false skips it.
	Decode func(any) (T, bool)
	Encode func(T) any
	// Prepare normalizes a new item; false rejects it silently.
	Prepare func(T) (T, bool)
	Same    func(a, b T) bool
	// Keep filters draft rows on commit; nil keeps everything.
	Keep func(T) (T, bool)
	// SetCell edits one named field of a row.
	SetCell func(row T, field, value string) (T, error)
	// Blank is the value of a freshly added draft row.
	Blank     func() T
	Duplicate string
}

// Collection edits a list-valued setting either one mutation at a time or
// through a draft committed in one save.
type Collection[T any] struct {
	spec      CollectionSpec[T]
	reader    valueReader
	saver     Saver
	publisher Publisher
	logger    *slog.Logger
}

func NewCollection[T any](spec CollectionSpec[T], reader valueReader, saver Saver, publisher Publisher, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default().With("component", "settings.collection", "key", spec.Key)
	}

	return &Collection[T]{
		spec:      spec,
		reader:    reader,
		saver:     saver,
		publisher: publisher,
		logger:    logger,
	}
}

func (c *Collection[T]) Key() string {
	return c.spec.Key
}

// Items returns the confirmed items.
func (c *Collection[T]) Items() []T {
	raw, _ := c.reader.Get(c.spec.Key).([]any)
	out := make([]T, 0, len(raw))
	for _, elem := range raw {
		item, ok := c.spec.Decode(elem)
		if !ok {
			continue
		}
		out = append(out, item)
	}

	return out
}

// Add appends one item and saves the whole list. Blank input is ignored and
// duplicates raise a notice; both report added=false without error.
func (c *Collection[T]) Add(ctx context.Context, item T) (bool, error) {
	if c.spec.Prepare != nil {
		var ok bool
		item, ok = c.spec.Prepare(item)
		if !ok {
			return false, nil
		}
	}
	items := c.Items()
	if c.index(items, item) >= 0 {
		if c.spec.Duplicate != "" && c.publisher != nil {
			c.publisher.Publish(signals.TopicNotice, signals.Notice{Level: signals.NoticeInfo, Message: c.spec.Duplicate})
		}

		return false, nil
	}
	items = append(items, item)
	if err := c.saver.SaveNow(ctx, c.spec.Key, c.encode(items)); err != nil {
		return false, err
	}

	return true, nil
}

// Remove deletes the first matching item and saves the list.
func (c *Collection[T]) Remove(ctx context.Context, item T) (bool, error) {
	items := c.Items()
	idx := c.index(items, item)
	if idx < 0 {
		return false, nil
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := c.saver.SaveNow(ctx, c.spec.Key, c.encode(items)); err != nil {
		return false, err
	}

	return true, nil
}

// Open starts a draft copied from the confirmed items.
func (c *Collection[T]) Open() *Draft[T] {
	return &Draft[T]{owner: c, rows: c.Items()}
}

func (c *Collection[T]) index(items []T, item T) int {
	for i, existing := range items {
		if c.spec.Same(existing, item) {
			return i
		}
	}

	return -1
}

func (c *Collection[T]) encode(items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, c.spec.Encode(item))
	}

	return out
}

// Draft is a private working copy of a collection. It never touches the
// store; Commit validates and saves it in one write.
type Draft[T any] struct {
	owner *Collection[T]

	mu     sync.Mutex
	rows   []T
	closed bool
}

func (d *Draft[T]) Rows() []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]T(nil), d.rows...)
}

func (d *Draft[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.rows)
}

func (d *Draft[T]) AddRow() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return -1, ErrDraftClosed
	}
	var row T
	if d.owner.spec.Blank != nil {
		row = d.owner.spec.Blank()
	}
	d.rows = append(d.rows, row)

	return len(d.rows) - 1, nil
}

func (d *Draft[T]) RemoveRow(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if index < 0 || index >= len(d.rows) {
		return fmt.Errorf("remove draft row %d: index out of range", index)
	}
	d.rows = append(d.rows[:index], d.rows[index+1:]...)

	return nil
}

func (d *Draft[T]) EditCell(index int, field, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if index < 0 || index >= len(d.rows) {
		return fmt.Errorf("edit draft row %d: index out of range", index)
	}
	if d.owner.spec.SetCell == nil {
		return fmt.Errorf("edit draft row %d: %s rows have no fields", index, d.owner.spec.Key)
	}
	row, err := d.owner.spec.SetCell(d.rows[index], field, value)
	if err != nil {
		return err
	}
	d.rows[index] = row

	return nil
}

// Commit drops invalid rows, saves the rest and closes the draft whether or
// not the save succeeds.
func (d *Draft[T]) Commit(ctx context.Context) ([]T, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return nil, ErrDraftClosed
	}
	d.closed = true
	rows := d.rows
	d.rows = nil
	d.mu.Unlock()

	kept := make([]T, 0, len(rows))
	for _, row := range rows {
		if d.owner.spec.Keep != nil {
			var ok bool
			row, ok = d.owner.spec.Keep(row)
			if !ok {
				continue
			}
		}
		kept = append(kept, row)
	}
	if dropped := len(rows) - len(kept); dropped > 0 {
		d.owner.logger.Debug("dropped incomplete rows", "count", dropped)
	}
	if err := d.owner.saver.SaveNow(ctx, d.owner.spec.Key, d.owner.encode(kept)); err != nil {
		return nil, err
	}

	return kept, nil
}

// Discard closes the draft without saving.
func (d *Draft[T]) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.rows = nil
}

func (d *Draft[T]) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// Row is one record of a two-column collection such as the dictionary.
type Row map[string]string

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}

// WordListSpec edits a list of words. Lower-cased lists compare without
// case and store lower-case words.
func WordListSpec(key string, lower bool, duplicate string) CollectionSpec[string] {
	return CollectionSpec[string]{
		Key: key,
		Decode: func(v any) (string, bool) {
			s, ok := v.(string)

			return s, ok
		},
		Encode: func(s string) any { return s },
		Prepare: func(s string) (string, bool) {
			s = strings.TrimSpace(s)
			if lower {
				s = strings.ToLower(s)
			}

			return s, s != ""
		},
		Same: func(a, b string) bool {
			if lower {
				return strings.EqualFold(a, b)
			}

			return a == b
		},
		Duplicate: duplicate,
	}
}

// PairSpec edits rows with two named text columns. Rows missing either
// column are dropped on commit.
func PairSpec(key, first, second string) CollectionSpec[Row] {
	return CollectionSpec[Row]{
		Key: key,
		Decode: func(v any) (Row, bool) {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			row := Row{}
			for _, col := range []string{first, second} {
				s, _ := m[col].(string)
				row[col] = s
			}

			return row, true
		},
		Encode: func(r Row) any {
			return map[string]any{first: r[first], second: r[second]}
		},
		Same: func(a, b Row) bool {
			return a[first] == b[first] && a[second] == b[second]
		},
		Keep: func(r Row) (Row, bool) {
			out := Row{
				first:  strings.TrimSpace(r[first]),
				second: strings.TrimSpace(r[second]),
			}

			return out, out[first] != "" && out[second] != ""
		},
		SetCell: func(r Row, field, value string) (Row, error) {
			if field != first && field != second {
				return r, fmt.Errorf("unknown field %q for %s", field, key)
			}
			out := r.clone()
			out[field] = value

			return out, nil
		},
		Blank: func() Row { return Row{first: "", second: ""} },
	}
}
