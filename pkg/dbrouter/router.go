package dbrouter

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"

	"github.com/opencouncil/councilkit/pkg/logger"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// Pool is the capability a routed connection exposes to borrowers: queries
// plus the liveness and lifecycle operations the router itself needs.
// *pgxpool.Pool satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Opener constructs the connection pool for one tenant's storage.
type Opener func(ctx context.Context, t *tenant.Tenant) (Pool, error)

// Router keeps one lazily-constructed, long-lived pool per tenant database
// identifier. Pools survive across requests; only the per-request active
// pointer (held by the switchboard scope) changes, which is the whole reason
// request handling does not pay a connection setup on every call.
//
// The router serializes only the first-use construction path (via
// singleflight); ordinary borrow and return traffic takes a read lock plus
// one entry mutex.
type Router struct {
	open Opener
	log  *slog.Logger

	sf singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

// entry owns the lifecycle of one tenant's pool. Borrow counting lets
// ReleaseAll drain gracefully: it stops new borrows and waits for in-flight
// ones before closing.
type entry struct {
	key  string
	pool Pool

	mu       sync.Mutex
	borrows  int
	draining bool
	drained  chan struct{}
}

// New creates a Router that constructs tenant pools with the given opener.
func New(open Opener, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		open:    open,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Acquire borrows the pool for the tenant's storage, constructing it on
// first use. A pool that fails its liveness probe is evicted and recreated
// once; if the retry also fails, ErrConnectionUnavailable is returned and the
// caller must abort rather than fall back to any other storage.
//
// The returned handle must be released exactly once; releasing is what lets
// ReleaseAll drain.
func (r *Router) Acquire(ctx context.Context, t *tenant.Tenant) (*Handle, error) {
	if t == nil || t.DatabaseID == "" {
		return nil, ErrUnknownTenant
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		e, err := r.entryFor(ctx, t)
		if err != nil {
			if errors.Is(err, ErrRouterClosed) {
				return nil, err
			}
			return nil, errors.Join(ErrConnectionUnavailable, err)
		}

		if !e.borrow() {
			// Entry is draining: the tenant is being evicted or deleted.
			return nil, ErrTenantEvicted
		}

		if err := e.pool.Ping(ctx); err != nil {
			e.release()
			r.evict(e)
			lastErr = err
			r.log.WarnContext(ctx, "tenant pool failed liveness probe, evicted",
				logger.Component("dbrouter"),
				logger.DatabaseID(t.DatabaseID),
				logger.Error(err),
			)
			continue
		}

		return &Handle{entry: e}, nil
	}

	return nil, errors.Join(ErrConnectionUnavailable, lastErr)
}

// entryFor returns the live entry for the tenant, constructing it under a
// singleflight group so a first-use race builds exactly one pool.
func (r *Router) entryFor(ctx context.Context, t *tenant.Tenant) (*entry, error) {
	key := t.DatabaseID

	r.mu.RLock()
	e, ok := r.entries[key]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRouterClosed
	}
	if ok {
		return e, nil
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		r.mu.RLock()
		e, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}

		pool, err := r.open(ctx, t)
		if err != nil {
			return nil, err
		}

		e = &entry{key: key, pool: pool, drained: make(chan struct{})}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			pool.Close()
			return nil, ErrRouterClosed
		}
		r.entries[key] = e
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// evict removes the entry from the routing table and closes its pool once
// the last in-flight borrow returns.
func (r *Router) evict(e *entry) {
	r.mu.Lock()
	if r.entries[e.key] == e {
		delete(r.entries, e.key)
	}
	r.mu.Unlock()

	e.startDraining()
	go func() {
		<-e.drained
		e.pool.Close()
	}()
}

// ReleaseAll drains and closes the pool for one tenant's storage. New borrows
// are rejected as soon as draining starts; the call blocks until in-flight
// borrows finish or ctx is done. On ctx expiry the pool is still closed in
// the background once drained.
//
// Invoked on tenant deletion and by administrative eviction.
func (r *Router) ReleaseAll(ctx context.Context, databaseID string) error {
	r.mu.Lock()
	e, ok := r.entries[databaseID]
	if ok {
		delete(r.entries, databaseID)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	e.startDraining()

	select {
	case <-e.drained:
		e.pool.Close()
		return nil
	case <-ctx.Done():
		go func() {
			<-e.drained
			e.pool.Close()
		}()
		return ctx.Err()
	}
}

// Close drains and closes every pool. The router rejects all traffic
// afterwards. Intended for process shutdown.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		e.startDraining()
		select {
		case <-e.drained:
			e.pool.Close()
		case <-ctx.Done():
			go func(e *entry) {
				<-e.drained
				e.pool.Close()
			}(e)
			errs = append(errs, ctx.Err())
		}
	}
	return errors.Join(errs...)
}

// borrow registers an in-flight borrower. Returns false when the entry is
// draining and must not hand out new borrows.
func (e *entry) borrow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draining {
		return false
	}
	e.borrows++
	return true
}

func (e *entry) release() {
	e.mu.Lock()
	e.borrows--
	if e.draining && e.borrows == 0 {
		close(e.drained)
	}
	e.mu.Unlock()
}

func (e *entry) startDraining() {
	e.mu.Lock()
	if !e.draining {
		e.draining = true
		if e.borrows == 0 {
			close(e.drained)
		}
	}
	e.mu.Unlock()
}

// Handle is a borrowed reference to one tenant's pool. The router keeps
// ownership of the pool itself; callers only signal with Release when they
// are done. Release is idempotent.
type Handle struct {
	entry *entry
	once  sync.Once
}

// DB returns the underlying pool for queries.
func (h *Handle) DB() Pool {
	return h.entry.pool
}

// Release returns the borrow. Safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(h.entry.release)
}
