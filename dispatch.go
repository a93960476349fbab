// Package dispatch provides an in-process publish/subscribe dispatcher.
// Listeners register under namespaced event names (optionally filtered,
// rate-limited, prioritized, and concurrency-bounded); emitting an event
// invokes every matching listener, including wildcard registrations, and
// blocks until all of them have been attempted. Listener failures never
// reach the emitter; they are reported through a pluggable error sink.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/arlohoss/dispatch/internal/history"
	"github.com/arlohoss/dispatch/internal/logging"
	"github.com/arlohoss/dispatch/internal/ratelimit"
	"github.com/arlohoss/dispatch/internal/registry"
)

// Dispatcher is an in-process publish/subscribe engine. It is safe for
// concurrent use. The zero value is not usable; construct with New.
type Dispatcher struct {
	mu        sync.RWMutex
	reg       *registry.Registry
	filters   []Filter
	separator string

	nextID atomic.Uint64
	sink   ErrorSink

	// Per-listener admission state, keyed by record id and created
	// lazily on first dispatch. Waiters queue FIFO, which is exactly the
	// pending-invocation drain order the engine guarantees.
	semMu sync.Mutex
	sems  map[uint64]*semaphore.Weighted

	hist *history.Store
}

// New creates a dispatcher with the given options.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		reg:       registry.New(),
		separator: opts.Separator,
		sink:      opts.ErrorSink,
		sems:      make(map[uint64]*semaphore.Weighted),
	}
	if d.separator == "" {
		d.separator = DefaultSeparator
	}
	if d.sink == nil {
		// Resolved per call so a logging reconfiguration (ApplyLogConfig)
		// reaches dispatchers that already exist.
		d.sink = func(event string, err error) {
			log := logging.ForComponent(logging.CompDispatch)
			log.Error().Str("event", event).Err(err).Msg("listener error")
		}
	}
	if opts.HistoryCap > 0 {
		var journal *history.Journal
		if opts.JournalPath != "" {
			var err error
			journal, err = history.OpenJournal(opts.JournalPath, opts.HistoryCap)
			if err != nil {
				log := logging.ForComponent(logging.CompHistory)
				log.Error().Err(err).Str("path", opts.JournalPath).Msg("journal disabled")
			}
		}
		d.hist = history.NewStore(opts.HistoryCap, journal)
	}
	return d
}

// On registers a listener for event and returns its id, the primary key for
// targeted removal. Throttle and Debounce are mutually exclusive;
// specifying both is rejected rather than silently preferring one.
func (d *Dispatcher) On(event string, cb Callback, opts *SubscribeOptions) (uint64, error) {
	if cb == nil {
		return 0, errors.New("dispatch: nil callback")
	}
	var o SubscribeOptions
	if opts != nil {
		o = *opts
	}
	if o.Throttle > 0 && o.Debounce > 0 {
		return 0, errors.New("dispatch: throttle and debounce are mutually exclusive")
	}

	sep := o.Separator
	if sep == "" {
		sep = d.Separator()
	}
	ns, name := registry.Parse(event, sep)

	rec := &registry.Record{
		ID:          d.nextID.Add(1),
		Identity:    registry.Identity(cb),
		Priority:    o.Priority,
		Concurrency: o.Concurrency,
		Separator:   sep,
		Namespace:   ns,
		Event:       name,
	}
	rec.Invoke, rec.Cancel = d.shape(cb, o)

	d.mu.Lock()
	d.reg.Insert(rec)
	if o.Filter != nil {
		d.filters = append(d.filters, o.Filter)
	}
	d.mu.Unlock()
	return rec.ID, nil
}

// shape applies the requested rate-shaping adapter to a callback.
func (d *Dispatcher) shape(cb Callback, o SubscribeOptions) (registry.Func, func()) {
	switch {
	case o.Throttle > 0:
		th := ratelimit.NewThrottler(o.Throttle)
		return func(event string, args ...any) error {
			if !th.Allow() {
				return nil
			}
			return cb(event, args...)
		}, nil
	case o.Debounce > 0:
		// The debounced execution happens on the timer goroutine, after
		// the emitting call has already returned, so its failures go
		// straight to the sink here.
		db := ratelimit.NewDebouncer(o.Debounce, func(event string, args []any) {
			d.call(registry.Func(cb), event, args)
		})
		return func(event string, args ...any) error {
			db.Call(event, args)
			return nil
		}, db.Stop
	default:
		return registry.Func(cb), nil
	}
}

// Off removes the first listener on event whose callback is the same
// function value as cb. No-op when nothing matches. Matching compares code
// pointers, so distinct closures made from one function literal are
// indistinguishable here; use RemoveSubscriptionByID with the id from On
// when that precision matters.
func (d *Dispatcher) Off(event string, cb Callback) {
	if cb == nil {
		return
	}
	identity := registry.Identity(cb)
	d.remove(event, func(rec *registry.Record) bool {
		return rec.Identity == identity
	})
}

// RemoveSubscriptionByID removes the listener registered on event with the
// id returned from On. No-op when nothing matches.
func (d *Dispatcher) RemoveSubscriptionByID(event string, id uint64) {
	d.remove(event, func(rec *registry.Record) bool {
		return rec.ID == id
	})
}

func (d *Dispatcher) remove(event string, match func(*registry.Record) bool) {
	d.mu.Lock()
	sep := d.reg.ResolveSeparator(event, d.separator)
	ns, name := registry.Parse(event, sep)
	removed := d.reg.Remove(ns, name, match)
	d.mu.Unlock()

	if removed == nil {
		return
	}
	if removed.Cancel != nil {
		removed.Cancel()
	}
	d.semMu.Lock()
	delete(d.sems, removed.ID)
	d.semMu.Unlock()
}

// Emit invokes every listener matching event with the given arguments and
// blocks until all of them have been attempted, including invocations
// deferred by a concurrency cap. It never fails from the caller's point of
// view; listener errors and panics are routed to the error sink.
//
// Matching resolves four groups: the global wildcard, the namespace
// wildcard, cross-namespace registrations of this event name, and the exact
// bucket. Groups run concurrently; within a group, listeners run in
// priority order. Only listeners registered under the separator resolved
// for this call are eligible.
func (d *Dispatcher) Emit(event string, args ...any) {
	d.mu.RLock()
	sep := d.reg.ResolveSeparator(event, d.separator)
	ns, name := registry.Parse(event, sep)

	if !d.admitted(name, ns) {
		d.mu.RUnlock()
		return
	}

	var groups [][]*registry.Record
	matched := 0
	collect := func(bucketNS, bucketEvent string) {
		bucket := d.reg.Bucket(bucketNS, bucketEvent)
		if len(bucket) == 0 {
			return
		}
		recs := make([]*registry.Record, 0, len(bucket))
		for _, rec := range bucket {
			if rec.Separator == sep {
				recs = append(recs, rec)
			}
		}
		if len(recs) > 0 {
			groups = append(groups, recs)
			matched += len(recs)
		}
	}
	collect("", Wildcard)
	if ns != "" {
		collect(ns, Wildcard)
	}
	collect(Wildcard, name)
	collect(ns, name)
	d.mu.RUnlock()

	if d.hist != nil {
		d.hist.Record(history.Entry{
			Time:      time.Now(),
			Event:     name,
			Namespace: ns,
			Listeners: matched,
		})
	}
	if len(groups) == 0 {
		return
	}

	var g errgroup.Group
	for _, group := range groups {
		group := group
		g.Go(func() error {
			d.runGroup(&g, group, event, args)
			return nil
		})
	}
	_ = g.Wait()
}

// runGroup invokes a group's listeners in bucket (priority) order. A
// listener at its concurrency cap is not skipped and does not stall the
// group: its invocation is parked behind the in-flight ones and the group
// moves on, while the enclosing Emit still waits for it.
func (d *Dispatcher) runGroup(g *errgroup.Group, group []*registry.Record, event string, args []any) {
	for _, rec := range group {
		sem := d.admission(rec)
		if sem == nil {
			d.call(rec.Invoke, event, args)
			continue
		}
		// TryAcquire is the atomic check-then-increment: either we hold
		// a slot now, or we queue FIFO behind the holders.
		if sem.TryAcquire(1) {
			d.call(rec.Invoke, event, args)
			sem.Release(1)
			continue
		}
		invoke := rec.Invoke
		g.Go(func() error {
			if err := sem.Acquire(context.Background(), 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			d.call(invoke, event, args)
			return nil
		})
	}
}

// admission returns the concurrency gate for a capped listener, creating it
// on first use. Unlimited listeners have none.
func (d *Dispatcher) admission(rec *registry.Record) *semaphore.Weighted {
	if rec.Concurrency <= 0 {
		return nil
	}
	d.semMu.Lock()
	defer d.semMu.Unlock()
	sem := d.sems[rec.ID]
	if sem == nil {
		sem = semaphore.NewWeighted(int64(rec.Concurrency))
		d.sems[rec.ID] = sem
	}
	return sem
}

// call runs one listener invocation, isolating failures. Panics and error
// returns are reported to the sink and never abort sibling listeners.
func (d *Dispatcher) call(fn registry.Func, event string, args []any) {
	defer func() {
		if r := recover(); r != nil {
			d.sink(event, fmt.Errorf("listener panic: %v\n%s", r, debug.Stack()))
		}
	}()
	if err := fn(event, args...); err != nil {
		d.sink(event, err)
	}
}

// admitted evaluates the global filter set. Caller holds at least a read
// lock. An empty set always admits; otherwise any one approving filter is
// enough.
func (d *Dispatcher) admitted(name, ns string) bool {
	if len(d.filters) == 0 {
		return true
	}
	for _, f := range d.filters {
		if f(name, ns) {
			return true
		}
	}
	return false
}

// SetSeparator changes the dispatcher's default separator for future
// registrations and lookups. Empty input is ignored.
func (d *Dispatcher) SetSeparator(sep string) {
	if sep == "" {
		return
	}
	d.mu.Lock()
	d.separator = sep
	d.mu.Unlock()
}

// Separator returns the dispatcher's default separator.
func (d *Dispatcher) Separator() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.separator
}

// HistoryEntry is one recorded emit, available when Options.HistoryCap is
// set.
type HistoryEntry struct {
	Time      time.Time
	Event     string
	Namespace string
	Listeners int
}

// History returns a snapshot of recorded emits, oldest first. Nil when
// history is disabled.
func (d *Dispatcher) History() []HistoryEntry {
	if d.hist == nil {
		return nil
	}
	entries := d.hist.Snapshot()
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{Time: e.Time, Event: e.Event, Namespace: e.Namespace, Listeners: e.Listeners}
	}
	return out
}

// Close releases dispatcher resources (the history journal). Listeners are
// not waited for.
func (d *Dispatcher) Close() error {
	if d.hist == nil {
		return nil
	}
	return d.hist.Close()
}
