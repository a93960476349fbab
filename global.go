package dispatch

import "sync"

// The package-level functions forward to one shared dispatcher, for callers
// that want process-wide pub/sub without threading an instance around. The
// core itself makes no singleton assumptions.

var (
	defaultMu         sync.RWMutex
	defaultDispatcher = New(Options{})
)

// Default returns the shared dispatcher.
func Default() *Dispatcher {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultDispatcher
}

// Reset replaces the shared dispatcher with a fresh one, dropping all
// registrations and filters. Intended for test cleanup.
func Reset() {
	defaultMu.Lock()
	old := defaultDispatcher
	defaultDispatcher = New(Options{})
	defaultMu.Unlock()
	_ = old.Close()
}

// On registers a listener on the shared dispatcher.
func On(event string, cb Callback, opts *SubscribeOptions) (uint64, error) {
	return Default().On(event, cb, opts)
}

// Off removes a listener from the shared dispatcher by callback identity.
func Off(event string, cb Callback) {
	Default().Off(event, cb)
}

// Emit emits on the shared dispatcher.
func Emit(event string, args ...any) {
	Default().Emit(event, args...)
}

// SetGlobalSeparator sets the shared dispatcher's default separator.
func SetGlobalSeparator(sep string) {
	Default().SetSeparator(sep)
}

// GlobalSeparator returns the shared dispatcher's default separator.
func GlobalSeparator() string {
	return Default().Separator()
}

// ListSubscriptions lists the shared dispatcher's buckets.
func ListSubscriptions() []SubscriptionSummary {
	return Default().ListSubscriptions()
}

// InspectSubscription inspects a bucket on the shared dispatcher.
func InspectSubscription(event string) []SubscriptionInfo {
	return Default().InspectSubscription(event)
}

// RemoveSubscriptionByID removes a listener from the shared dispatcher by
// its registration id.
func RemoveSubscriptionByID(event string, id uint64) {
	Default().RemoveSubscriptionByID(event, id)
}
