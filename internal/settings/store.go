package settings

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const volumeKey = "audio_feedback_volume"

// Store is the in-memory mirror of the settings tree. Writes are applied
// only after the service confirms them.
type Store struct {
	gateway Gateway
	schema  *Schema
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	tree   Tree
	loaded bool
}

func NewStore(gateway Gateway, schema *Schema, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default().With("component", "settings.store")
	}
	if schema == nil {
		schema = StandardSchema()
	}

	return &Store{
		gateway: gateway,
		schema:  schema,
		timeout: timeout,
		logger:  logger,
		tree:    Tree{},
	}
}

// Load replaces the snapshot with the service tree. On failure the previous
// snapshot is kept and a *LoadError is returned.
func (s *Store) Load(ctx context.Context) (Tree, error) {
	callCtx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	tree, err := s.gateway.LoadAll(callCtx)
	if err != nil {
		return nil, &LoadError{Err: classifyCallError(err)}
	}
	tree = tree.Clone()
	upgradeLegacyValues(tree)

	s.mu.Lock()
	s.tree = tree
	s.loaded = true
	s.mu.Unlock()
	s.logger.Debug("settings loaded", "keys", len(tree))

	return tree.Clone(), nil
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}

// Get returns the value at a dotted path, the schema default when the path
// is absent, or nil.
func (s *Store) Get(path string) any {
	v, ok := s.Lookup(path)
	if ok {
		return v
	}
	if def, ok := s.schema.Default(path); ok {
		return def
	}

	return nil
}

// Lookup returns a copy of the stored value without falling back to defaults.
func (s *Store) Lookup(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.tree.Lookup(path)
	if !ok {
		return nil, false
	}

	return cloneValue(v), true
}

func (s *Store) Bool(path string) bool {
	b, _ := s.Get(path).(bool)

	return b
}

func (s *Store) String(path string) string {
	str, _ := s.Get(path).(string)

	return str
}

func (s *Store) Float(path string) float64 {
	f, _ := AsFloat(s.Get(path))

	return f
}

func (s *Store) Strings(path string) []string {
	return AsStrings(s.Get(path))
}

// Snapshot returns a deep copy of the stored tree.
func (s *Store) Snapshot() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Clone()
}

func (s *Store) Schema() *Schema {
	return s.schema
}

// applyConfirmed records a value the service accepted. Top-level keys are
// always writable; nested paths need existing parents.
func (s *Store) applyConfirmed(path string, value any) error {
	canonical, err := Canonical(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tree.Assign(path, canonical)
}

func upgradeLegacyValues(tree Tree) {
	if v, ok := AsFloat(tree[volumeKey]); ok {
		tree[volumeKey] = NormalizeVolume(v)
	}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
