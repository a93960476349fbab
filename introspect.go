package dispatch

import (
	"sort"

	"github.com/arlohoss/dispatch/internal/registry"
)

// SubscriptionSummary is one row of ListSubscriptions.
type SubscriptionSummary struct {
	// Event is the registered event string, reassembled from namespace
	// and name with the separator the listeners were registered under.
	Event         string
	ListenerCount int
}

// SubscriptionInfo describes one registered listener of a bucket.
type SubscriptionInfo struct {
	ID          uint64
	Event       string
	Namespace   string
	Separator   string
	Priority    int
	Concurrency int // 0 means unlimited
}

// ListSubscriptions returns every registered bucket with its listener
// count, sorted by event string for stable output.
func (d *Dispatcher) ListSubscriptions() []SubscriptionSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []SubscriptionSummary
	d.reg.Walk(func(ns, ev string, bucket []*registry.Record) {
		event := ev
		if ns != "" {
			// Buckets hold a single (namespace, event) pair but may mix
			// separators in theory; the first record's separator is the
			// one the bucket was addressed under.
			event = ns + bucket[0].Separator + ev
		}
		out = append(out, SubscriptionSummary{Event: event, ListenerCount: len(bucket)})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

// InspectSubscription returns the listeners registered on the exact bucket
// event resolves to, in dispatch (priority) order.
func (d *Dispatcher) InspectSubscription(event string) []SubscriptionInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sep := d.reg.ResolveSeparator(event, d.separator)
	ns, name := registry.Parse(event, sep)

	bucket := d.reg.Bucket(ns, name)
	out := make([]SubscriptionInfo, 0, len(bucket))
	for _, rec := range bucket {
		out = append(out, SubscriptionInfo{
			ID:          rec.ID,
			Event:       rec.Event,
			Namespace:   rec.Namespace,
			Separator:   rec.Separator,
			Priority:    rec.Priority,
			Concurrency: rec.Concurrency,
		})
	}
	return out
}
