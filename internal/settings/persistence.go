package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const DefaultSavedIndicator = 2 * time.Second

// Publisher fans UI signals out to observers.
type Publisher interface {
	Publish(topic string, msg any)
}

// Evaluator re-applies visibility rules for a changed key.
type Evaluator interface {
	Evaluate(driver string) int
}

type PersistenceOptions struct {
	Timeout        time.Duration
	SavedIndicator time.Duration
	Now            func() time.Time
}

// Persistence turns field edits into gateway writes. Text fields are
// coalesced per key; everything else is written at once.
type Persistence struct {
	gateway   Gateway
	store     *Store
	evaluator Evaluator
	publisher Publisher
	logger    *slog.Logger
	opts      PersistenceOptions

	mu         sync.Mutex
	pending    map[string]*pendingWrite
	issued     map[string]uint64
	confirmed  map[string]uint64
	savedTimer *time.Timer
	closed     bool
}

type pendingWrite struct {
	key   string
	value any
	timer *time.Timer
}

func NewPersistence(gateway Gateway, store *Store, evaluator Evaluator, publisher Publisher, opts PersistenceOptions, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default().With("component", "settings.persistence")
	}
	if opts.SavedIndicator <= 0 {
		opts.SavedIndicator = DefaultSavedIndicator
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Persistence{
		gateway:   gateway,
		store:     store,
		evaluator: evaluator,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		pending:   make(map[string]*pendingWrite),
		issued:    make(map[string]uint64),
		confirmed: make(map[string]uint64),
	}
}

// Save persists a field edit using the policy of the field kind. Debounced
// edits return nil immediately; their outcome is reported through signals.
func (p *Persistence) Save(ctx context.Context, key string, value any) error {
	if delay := p.store.Schema().DebounceFor(key); delay > 0 {
		p.schedule(key, value, delay)

		return nil
	}

	return p.SaveNow(ctx, key, value)
}

// SaveNow writes immediately and drops any pending coalesced edit of the key.
func (p *Persistence) SaveNow(ctx context.Context, key string, value any) error {
	p.cancelPending(key)

	return p.write(ctx, key, value)
}

// Flush writes every pending coalesced edit now.
func (p *Persistence) Flush(ctx context.Context) {
	p.mu.Lock()
	writes := make([]*pendingWrite, 0, len(p.pending))
	for key, pw := range p.pending {
		pw.timer.Stop()
		delete(p.pending, key)
		writes = append(writes, pw)
	}
	p.mu.Unlock()

	for _, pw := range writes {
		_ = p.write(ctx, pw.key, pw.value)
	}
}

// Pending reports whether a coalesced edit of key is waiting.
func (p *Persistence) Pending(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[key]

	return ok
}

// Close stops all timers. Pending edits are dropped.
func (p *Persistence) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for key, pw := range p.pending {
		pw.timer.Stop()
		delete(p.pending, key)
	}
	if p.savedTimer != nil {
		p.savedTimer.Stop()
		p.savedTimer = nil
	}
}

func (p *Persistence) schedule(key string, value any, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if prev, ok := p.pending[key]; ok {
		prev.timer.Stop()
	}
	pw := &pendingWrite{key: key, value: value}
	pw.timer = time.AfterFunc(delay, func() { p.fire(pw) })
	p.pending[key] = pw
}

func (p *Persistence) fire(pw *pendingWrite) {
	p.mu.Lock()
	if p.pending[pw.key] != pw {
		// Superseded by a newer edit or an immediate save.
		p.mu.Unlock()

		return
	}
	delete(p.pending, pw.key)
	p.mu.Unlock()

	_ = p.write(context.Background(), pw.key, pw.value)
}

func (p *Persistence) cancelPending(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pw, ok := p.pending[key]; ok {
		pw.timer.Stop()
		delete(p.pending, key)
	}
}

func (p *Persistence) write(ctx context.Context, key string, value any) error {
	seq := p.nextSeq(key)

	callCtx, cancel := withOptionalTimeout(ctx, p.opts.Timeout)
	err := p.gateway.SaveOne(callCtx, key, value)
	cancel()
	if err != nil {
		werr := &WriteError{Key: key, Err: classifyCallError(err)}
		p.logger.Warn("setting save failed", "key", key, "error", err)
		p.publish(signals.TopicError, signals.Error{
			Kind:    signals.ErrorWrite,
			Key:     key,
			Message: "Failed to save: " + werr.Err.Error(),
		})

		return werr
	}
	p.noteConfirmed(key, seq)

	if err := p.store.applyConfirmed(key, value); err != nil {
		p.logger.Error("confirmed setting cannot be applied locally", "key", key, "error", err)
		kind := signals.ErrorWrite
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			kind = signals.ErrorPath
		}
		p.publish(signals.TopicError, signals.Error{Kind: kind, Key: key, Message: err.Error()})

		return err
	}
	if p.evaluator != nil {
		p.evaluator.Evaluate(key)
		if root := RootKey(key); root != key {
			p.evaluator.Evaluate(root)
		}
	}
	p.flashSaved(key)
	p.logger.Debug("setting saved", "key", key)

	return nil
}

func (p *Persistence) nextSeq(key string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued[key]++

	return p.issued[key]
}

func (p *Persistence) noteConfirmed(key string, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last := p.confirmed[key]; last > seq {
		// Last confirmation still wins; the mismatch is only reported.
		p.logger.Warn("stale confirmation", "key", key, "seq", seq, "newer_seq", last)
	}
	p.confirmed[key] = seq
}

func (p *Persistence) flashSaved(key string) {
	p.publish(signals.TopicSaveStatus, signals.SaveStatus{Key: key, Visible: true, At: p.opts.Now()})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.savedTimer != nil {
		p.savedTimer.Stop()
	}
	p.savedTimer = time.AfterFunc(p.opts.SavedIndicator, func() {
		p.publish(signals.TopicSaveStatus, signals.SaveStatus{Key: key, Visible: false, At: p.opts.Now()})
	})
}

func (p *Persistence) publish(topic string, msg any) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(topic, msg)
}
