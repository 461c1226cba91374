package tablestate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sboagy/tablestate/pkg/activity"
)

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries int `json:"totalEntries"`
	DirtyEntries int `json:"dirtyEntries"`
}

// Cache coalesces table state updates in memory and writes them to a Gateway
// only when asked to. It owns no timer; callers decide when to flush.
//
// A Cache is safe for concurrent use. Flushes of the same key run one at a
// time, each merging from the cache contents at the moment it executes.
// Flushes of different keys are independent.
type Cache struct {
	gateway Gateway
	cfg     cacheConfig
	emitter *activity.Emitter

	mu      sync.Mutex
	entries map[string]*entry
	flights map[string]*flight
}

type entry struct {
	key        Key
	state      TableState
	dirty      bool
	updates    int
	updatedAt  time.Time
	dirtySince time.Time
	flushedAt  time.Time

	// Updates landing while a flush of this key is in flight are also
	// collected in pending so they survive the flush's state replacement.
	inflight bool
	raced    bool
	pending  TableState
}

// flight serializes gateway writes for one key. It is dropped once no
// caller holds or waits for it.
type flight struct {
	mu   sync.Mutex
	refs int
}

// New constructs a Cache writing through gateway.
func New(gateway Gateway, opts ...Option) *Cache {
	cfg := applyOptions(opts)
	return &Cache{
		gateway: gateway,
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.activityHooks,
			activity.WithChannel(cfg.activityChannel),
			activity.WithClock(cfg.now),
		),
		entries: map[string]*entry{},
		flights: map[string]*flight{},
	}
}

// Update merges partial into the cached state for the key and marks it
// dirty. Invalid keys are ignored. Update never contacts the gateway.
func (c *Cache) Update(key Key, partial TableState) {
	if !key.Valid() {
		return
	}
	now := c.cfg.now()
	id := key.Identifier()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key}
		c.entries[id] = e
	}
	e.state = Merge(e.state, partial)
	if !e.dirty {
		e.dirtySince = now
	}
	e.dirty = true
	e.updates++
	e.updatedAt = now
	if e.inflight {
		e.raced = true
		e.pending = Merge(e.pending, partial)
	}
}

// FlushImmediate writes the cached state for key, with override applied on
// top, through the gateway and returns the gateway's status.
//
// A 2xx status marks the entry clean and stores the persisted value as its
// state. Any other status leaves the entry untouched and is returned with a
// nil error. Transport errors from the gateway are returned unmodified.
// Without a cached entry the override alone (or an empty state) is written
// and no entry is created.
func (c *Cache) FlushImmediate(ctx context.Context, key Key, override *TableState) (int, error) {
	status, _, err := c.flush(ctx, key, override, false)
	return status, err
}

// flush writes key through the gateway while holding its flight lock. With
// dirtyOnly set it writes nothing unless the entry still exists and is dirty
// once the lock is held, and reports attempted=false.
func (c *Cache) flush(ctx context.Context, key Key, override *TableState, dirtyOnly bool) (status int, attempted bool, err error) {
	if !key.Valid() {
		return 0, true, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	if c.gateway == nil {
		return 0, true, ErrNoGateway
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := key.Identifier()
	release := c.acquire(id)
	defer release()

	c.mu.Lock()
	e := c.entries[id]
	if dirtyOnly && (e == nil || !e.dirty) {
		c.mu.Unlock()
		return 0, false, nil
	}
	var payload TableState
	if e != nil {
		payload = e.state
		e.inflight = true
		e.raced = false
		e.pending = TableState{}
	}
	if override != nil {
		payload = Merge(payload, *override)
	} else {
		payload = payload.Clone()
	}
	c.mu.Unlock()

	settled := false
	settle := func(ok bool) {
		settled = true
		c.mu.Lock()
		defer c.mu.Unlock()
		if e == nil || c.entries[id] != e {
			return
		}
		if ok {
			e.state = Merge(payload, e.pending)
			e.dirty = e.raced
			e.updates = 0
			if e.raced {
				e.dirtySince = e.updatedAt
			}
			e.flushedAt = c.cfg.now()
		}
		e.inflight = false
		e.raced = false
		e.pending = TableState{}
	}
	// A panicking gateway must not leave the entry marked in flight.
	defer func() {
		if !settled {
			settle(false)
		}
	}()

	start := time.Now()
	status, err = c.gateway.UpdateTableState(ctx, key.UserID, ScopeFull, key.Purpose, key.ResourceID, payload.Clone())
	duration := time.Since(start)
	ok := err == nil && IsSuccess(status)
	settle(ok)

	fields := payload.Fields()
	hookErr := c.emitFlush(ctx, key, status, fields, err, ok)
	c.flushLogger().LogFlush(FlushLogEvent{
		Key:      key,
		Status:   status,
		Fields:   fields,
		Duration: duration,
		Err:      err,
		HookErr:  hookErr,
	})

	return status, true, err
}

// Stats counts the cached entries and the dirty ones among them.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := Stats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		if e.dirty {
			stats.DirtyEntries++
		}
	}
	return stats
}

// Clear discards every entry regardless of state. Flushes already in flight
// complete against the gateway but no longer touch the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	stats := Stats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		if e.dirty {
			stats.DirtyEntries++
		}
	}
	c.entries = map[string]*entry{}
	c.mu.Unlock()

	if c.emitter.Enabled() {
		event := activity.BuildClearedEvent(c.cfg.actorID, stats.TotalEntries, stats.DirtyEntries)
		if err := c.emitter.Emit(context.Background(), event); err != nil {
			c.flushLogger().LogFlush(FlushLogEvent{HookErr: err})
		}
	}
}

// Lookup returns a copy of the cached state for key.
func (c *Cache) Lookup(key Key) (TableState, bool) {
	if !key.Valid() {
		return TableState{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Identifier()]
	if !ok {
		return TableState{}, false
	}
	return e.state.Clone(), true
}

// IsDirty reports whether key holds changes not yet confirmed persisted.
func (c *Cache) IsDirty(key Key) bool {
	if !key.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Identifier()]
	return ok && e.dirty
}

func (c *Cache) acquire(id string) func() {
	c.mu.Lock()
	f, ok := c.flights[id]
	if !ok {
		f = &flight{}
		c.flights[id] = f
	}
	f.refs++
	c.mu.Unlock()

	f.mu.Lock()
	return func() {
		f.mu.Unlock()
		c.mu.Lock()
		f.refs--
		if f.refs == 0 && c.flights[id] == f {
			delete(c.flights, id)
		}
		c.mu.Unlock()
	}
}
