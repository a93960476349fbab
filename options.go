package dispatch

import (
	"time"

	"github.com/arlohoss/dispatch/internal/registry"
)

// Callback is a listener function. It receives the emitted event string and
// the emit call's positional arguments. A non-nil error is reported to the
// dispatcher's error sink; it never propagates to the emitter.
type Callback func(event string, args ...any) error

// Filter is a global emission predicate evaluated once per Emit call before
// any listener resolution. With one or more filters registered, emission
// proceeds if ANY of them returns true.
type Filter func(event, namespace string) bool

// ErrorSink receives every swallowed listener failure together with the
// event that triggered it.
type ErrorSink func(event string, err error)

// DefaultSeparator is the namespace delimiter used when neither the
// dispatcher nor the registration specifies one.
const DefaultSeparator = "."

// Wildcard is the reserved token for wildcard registrations: "*" matches
// every event, "ns.*" every event in ns, "*.x" event x in any namespace.
const Wildcard = registry.Wildcard

// Unlimited leaves a listener without a concurrency cap.
const Unlimited = 0

// Options configures a Dispatcher instance.
type Options struct {
	// Separator is the default namespace delimiter for registrations that
	// do not specify their own. Defaults to DefaultSeparator.
	Separator string

	// ErrorSink receives swallowed listener failures. Defaults to a
	// structured log on standard error.
	ErrorSink ErrorSink

	// HistoryCap enables recording of emitted events when positive,
	// retaining at most this many entries. Off by default.
	HistoryCap int

	// JournalPath mirrors the history to a SQLite journal at this path.
	// Only honored when HistoryCap is positive. An open failure is logged
	// and recording continues in memory only.
	JournalPath string
}

// SubscribeOptions carries per-registration settings for On. The zero value
// means: no filter, no rate shaping, priority 0, unlimited concurrency,
// dispatcher-default separator.
type SubscribeOptions struct {
	// Filter joins the dispatcher's global filter set (OR semantics, see
	// Filter). Filters accumulate for the dispatcher's lifetime.
	Filter Filter

	// Throttle drops invocations arriving within the given interval of
	// the last admitted one. Mutually exclusive with Debounce.
	Throttle time.Duration

	// Debounce coalesces bursts into one trailing-edge invocation per
	// quiescent period. Mutually exclusive with Throttle.
	Debounce time.Duration

	// Priority orders listeners within one bucket; higher runs earlier.
	Priority int

	// Concurrency caps in-flight invocations of this listener across
	// overlapping Emit calls. Zero (Unlimited) means no cap.
	Concurrency int

	// Separator overrides the dispatcher default for this registration.
	Separator string
}
