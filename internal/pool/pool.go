// ABOUTME: Reference-counted pool of long-lived per-guild database handles.
// ABOUTME: Idle handles are closed after a TTL or when the pool grows past its bound.

package pool

import (
	"container/list"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool closed")

// OpenFunc opens the handle for a key. It is called with the pool lock held,
// so it must not block on I/O; sql.Open is fine because it connects lazily.
type OpenFunc func(key int64) (*sql.DB, error)

// entry tracks one open handle.
type entry struct {
	db       *sql.DB
	refs     int
	lastUsed time.Time
	evict    bool          // close as soon as refs drops to zero
	element  *list.Element // position in the LRU order
}

// Pool keeps at most one *sql.DB per key. Handles are reference counted: a
// handle in use is never closed. Idle handles are closed once they have not
// been used for idleTTL, and the least recently used idle handle is closed
// whenever more than maxOpen handles are open.
type Pool struct {
	mu      sync.Mutex
	entries map[int64]*entry
	order   *list.List // keys, least recently used at front
	open    OpenFunc
	idleTTL time.Duration
	maxOpen int
	logger  *slog.Logger
	done    chan struct{}
	closed  bool
}

// New creates a pool and starts its background sweeper.
func New(open OpenFunc, maxOpen int, idleTTL time.Duration) *Pool {
	p := &Pool{
		entries: make(map[int64]*entry),
		order:   list.New(),
		open:    open,
		idleTTL: idleTTL,
		maxOpen: maxOpen,
		logger:  slog.Default().With("component", "pool"),
		done:    make(chan struct{}),
	}
	go p.sweep()
	return p
}

// Acquire returns the handle for key, opening it if needed. The caller must
// invoke release exactly once when finished with the handle.
func (p *Pool) Acquire(key int64) (*sql.DB, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, ErrClosed
	}

	e, ok := p.entries[key]
	if !ok {
		db, err := p.open(key)
		if err != nil {
			return nil, nil, fmt.Errorf("opening handle %d: %w", key, err)
		}
		e = &entry{db: db}
		e.element = p.order.PushBack(key)
		p.entries[key] = e
		p.logger.Debug("opened handle", "key", key, "open", len(p.entries))
		p.trimLocked()
	} else {
		p.order.MoveToBack(e.element)
	}

	e.refs++
	e.lastUsed = time.Now()

	var once sync.Once
	release := func() {
		once.Do(func() { p.release(key, e) })
	}
	return e.db, release, nil
}

func (p *Pool) release(key int64, e *entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e.refs--
	e.lastUsed = time.Now()
	if e.refs > 0 {
		return
	}
	if e.evict || p.closed {
		p.removeLocked(key, e)
		return
	}
	p.trimLocked()
}

// Evict closes the handle for key. A handle that is in use is marked and
// closed when its last user releases it. The next Acquire opens a fresh one.
func (p *Pool) Evict(key int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return
	}
	if e.refs > 0 {
		// Detach so new callers get a fresh handle while current users finish.
		e.evict = true
		p.order.Remove(e.element)
		delete(p.entries, key)
		return
	}
	p.removeLocked(key, e)
}

// Len reports how many handles are open.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// trimLocked closes idle handles, oldest first, until the pool is within
// maxOpen. Must be called with mu held.
func (p *Pool) trimLocked() {
	for el := p.order.Front(); el != nil && len(p.entries) > p.maxOpen; {
		next := el.Next()
		key, _ := el.Value.(int64)
		if e := p.entries[key]; e != nil && e.refs == 0 {
			p.removeLocked(key, e)
		}
		el = next
	}
}

// removeLocked closes the handle and forgets it. Must be called with mu held.
func (p *Pool) removeLocked(key int64, e *entry) {
	if cur, ok := p.entries[key]; ok && cur == e {
		p.order.Remove(e.element)
		delete(p.entries, key)
	}
	if err := e.db.Close(); err != nil {
		p.logger.Warn("closing handle", "key", key, "error", err)
		return
	}
	p.logger.Debug("closed handle", "key", key)
}

// sweep runs in a background goroutine, periodically closing idle handles.
func (p *Pool) sweep() {
	interval := p.idleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.closeIdle()
		case <-p.done:
			return
		}
	}
}

// closeIdle closes every handle that has been idle for longer than idleTTL.
func (p *Pool) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, e := range p.entries {
		if e.refs == 0 && now.Sub(e.lastUsed) > p.idleTTL {
			p.removeLocked(key, e)
		}
	}
}

// Close stops the sweeper and closes every idle handle. Handles still in use
// are closed when released. It is safe to call multiple times.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	close(p.done)
	p.closed = true

	var errs []error
	for key, e := range p.entries {
		if e.refs > 0 {
			continue
		}
		p.order.Remove(e.element)
		delete(p.entries, key)
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing handle %d: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
