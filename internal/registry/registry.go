// Package registry owns the mapping from (namespace, event name) to ordered
// listener buckets, plus the event-string parsing and separator resolution
// used by the dispatch engine.
package registry

import (
	"reflect"
	"slices"
	"strings"
)

// Wildcard is the reserved event-name and namespace token. A listener on
// "*" matches every event; a listener on "ns.*" matches every event in
// "ns"; a listener on "*.x" matches event "x" in any namespace.
const Wildcard = "*"

// Func is the invocable form of a listener callback, possibly wrapped in a
// throttle or debounce adapter at registration time.
type Func func(event string, args ...any) error

// Record is one registered subscription.
type Record struct {
	// ID is process-unique, assigned at registration. It is the primary
	// removal key and the key for the engine's concurrency bookkeeping.
	ID uint64

	// Invoke is the callback as dispatch should call it (rate-shaping
	// adapters already applied). Identity is the function pointer of the
	// original, unwrapped callback, used for identity-based removal.
	Invoke   Func
	Identity uintptr

	// Cancel releases adapter state (a pending debounce timer) when the
	// record is removed. Nil for unshaped listeners.
	Cancel func()

	Priority    int
	Concurrency int // 0 means unlimited

	// Separator is the delimiter this registration was made under, and
	// Namespace/Event the decomposition of the registered event string.
	// Dispatch only matches records whose separator equals the one
	// resolved for the emit call.
	Separator string
	Namespace string
	Event     string
}

// Identity returns the comparable code pointer for a callback. Two
// references to the same function value yield the same identity — but so do
// two distinct closures created from the same function literal, since they
// share code. Identity-based removal is therefore best-effort; the
// registration id is the precise key.
func Identity(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Registry maps namespace -> event name -> bucket. Buckets are kept in
// descending priority order with FIFO tie-breaking. The registry is not
// synchronized; the owning dispatcher serializes access.
type Registry struct {
	namespaces map[string]map[string][]*Record
}

func New() *Registry {
	return &Registry{namespaces: make(map[string]map[string][]*Record)}
}

// Parse splits an event string on the given separator. The final segment is
// the event name; everything before it, rejoined, is the namespace. With no
// separator occurrence the whole string is the event name. Degenerate
// inputs (empty event, empty separator, event equal to the separator)
// degrade to best-effort results rather than failing.
func Parse(event, sep string) (namespace, name string) {
	if sep == "" || !strings.Contains(event, sep) {
		return "", event
	}
	segs := strings.Split(event, sep)
	return strings.Join(segs[:len(segs)-1], sep), segs[len(segs)-1]
}

// Insert adds a record to its bucket, before the first entry with strictly
// lower priority. Equal priorities keep registration order.
func (r *Registry) Insert(rec *Record) {
	events := r.namespaces[rec.Namespace]
	if events == nil {
		events = make(map[string][]*Record)
		r.namespaces[rec.Namespace] = events
	}
	bucket := events[rec.Event]
	idx := len(bucket)
	for i, existing := range bucket {
		if existing.Priority < rec.Priority {
			idx = i
			break
		}
	}
	events[rec.Event] = slices.Insert(bucket, idx, rec)
}

// Bucket returns the live bucket for (namespace, event). Callers must copy
// before releasing the dispatcher lock.
func (r *Registry) Bucket(namespace, event string) []*Record {
	return r.namespaces[namespace][event]
}

// Remove deletes the first record in (namespace, event) accepted by match
// and returns it. Empty buckets and namespaces are garbage-collected so no
// dangling containers remain. Returns nil when nothing matches.
func (r *Registry) Remove(namespace, event string, match func(*Record) bool) *Record {
	events := r.namespaces[namespace]
	if events == nil {
		return nil
	}
	bucket := events[event]
	for i, rec := range bucket {
		if match(rec) {
			bucket = slices.Delete(bucket, i, i+1)
			if len(bucket) == 0 {
				delete(events, event)
				if len(events) == 0 {
					delete(r.namespaces, namespace)
				}
			} else {
				events[event] = bucket
			}
			return rec
		}
	}
	return nil
}

// ResolveSeparator finds the separator under which event decomposes to a
// pair some registered listener would match, so that off/emit calls need
// not repeat the separator used at registration. Exact matches win over
// wildcard matches; within each class the earliest registration (lowest id)
// wins, keeping resolution independent of bucket iteration order. With no
// match the fallback is returned.
func (r *Registry) ResolveSeparator(event, fallback string) string {
	var exact, wildcard *Record
	for _, events := range r.namespaces {
		for _, bucket := range events {
			for _, rec := range bucket {
				ns, name := Parse(event, rec.Separator)
				switch {
				case rec.Namespace == ns && rec.Event == name:
					if exact == nil || rec.ID < exact.ID {
						exact = rec
					}
				case wildcardMatches(rec, ns, name):
					if wildcard == nil || rec.ID < wildcard.ID {
						wildcard = rec
					}
				}
			}
		}
	}
	if exact != nil {
		return exact.Separator
	}
	if wildcard != nil {
		return wildcard.Separator
	}
	return fallback
}

// wildcardMatches reports whether a wildcard record would match the
// (namespace, name) decomposition of an event under that record's own
// separator. Wildcard event names match by namespace-prefix containment.
func wildcardMatches(rec *Record, ns, name string) bool {
	if rec.Event == Wildcard {
		if rec.Namespace == "" {
			return true
		}
		return ns == rec.Namespace || strings.HasPrefix(ns, rec.Namespace+rec.Separator)
	}
	if rec.Namespace == Wildcard {
		return rec.Event == name
	}
	return false
}

// Walk visits every bucket. Iteration order is unspecified.
func (r *Registry) Walk(fn func(namespace, event string, bucket []*Record)) {
	for ns, events := range r.namespaces {
		for ev, bucket := range events {
			fn(ns, ev, bucket)
		}
	}
}

// Len returns the total number of registered records.
func (r *Registry) Len() int {
	n := 0
	for _, events := range r.namespaces {
		for _, bucket := range events {
			n += len(bucket)
		}
	}
	return n
}
