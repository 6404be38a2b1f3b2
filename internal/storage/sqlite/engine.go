package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Staniell/MonthWise/internal/metrics"
)

const openKey = "open"

// ErrEngineClosed is returned to callers whose open was overtaken by Close.
var ErrEngineClosed = errors.New("sqlite: engine closed during open")

// Engine owns the lifecycle of the single database handle. Concurrent first
// callers of Open share one physical open; a failed open is not cached.
type Engine struct {
	path    string
	opts    []Option
	metrics *metrics.Metrics

	group singleflight.Group
	mu    sync.Mutex
	store *Store
	gen   uint64 // bumped by Close
	opens atomic.Int64
}

// NewEngine returns an engine for the database at path. No I/O happens until
// Open is called.
func NewEngine(path string, opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{path: path, opts: opts, metrics: o.metrics}
}

// Open returns the shared store, opening and migrating the database on first
// use.
func (e *Engine) Open(ctx context.Context) (*Store, error) {
	if s := e.cached(); s != nil {
		return s, nil
	}

	v, err, shared := e.group.Do(openKey, func() (any, error) {
		if s := e.cached(); s != nil {
			return s, nil
		}
		e.mu.Lock()
		gen := e.gen
		e.mu.Unlock()

		e.opens.Add(1)
		e.metrics.Opened()

		// The open is shared by every waiting caller, so one caller's
		// cancellation must not fail the others.
		s, err := New(context.WithoutCancel(ctx), e.path, e.opts...)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to open database", "path", e.path, "error", err)
			return nil, err
		}

		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			_ = s.Close()
			slog.WarnContext(ctx, "Discarded database opened before Close", "path", e.path)
			return nil, ErrEngineClosed
		}
		e.store = s
		e.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Joined in-flight database open", "path", e.path)
	}
	return v.(*Store), nil
}

// Close closes the cached store. A later Open starts from scratch.
func (e *Engine) Close() error {
	e.mu.Lock()
	s := e.store
	e.store = nil
	e.gen++
	e.group.Forget(openKey)
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

// OpenCount reports how many physical opens the engine has attempted.
func (e *Engine) OpenCount() int64 {
	return e.opens.Load()
}

// Path returns the database file path.
func (e *Engine) Path() string { return e.path }

func (e *Engine) cached() *Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store
}
