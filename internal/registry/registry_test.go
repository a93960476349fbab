package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		event, sep string
		wantNS     string
		wantName   string
	}{
		{"evt", ".", "", "evt"},
		{"ns.evt", ".", "ns", "evt"},
		{"a.b.c", ".", "a.b", "c"},
		{"ns:evt", ":", "ns", "evt"},
		{"ns.evt", ":", "", "ns.evt"},
		{"a::b", "::", "a", "b"},
		{"", ".", "", ""},
		{".", ".", "", ""},
		{"evt", "", "", "evt"},
	}
	for _, tt := range tests {
		ns, name := Parse(tt.event, tt.sep)
		assert.Equal(t, tt.wantNS, ns, "namespace of %q with %q", tt.event, tt.sep)
		assert.Equal(t, tt.wantName, name, "name of %q with %q", tt.event, tt.sep)
	}
}

func rec(id uint64, priority int) *Record {
	return &Record{
		ID:        id,
		Priority:  priority,
		Separator: ".",
		Namespace: "ns",
		Event:     "evt",
	}
}

func ids(bucket []*Record) []uint64 {
	out := make([]uint64, len(bucket))
	for i, r := range bucket {
		out[i] = r.ID
	}
	return out
}

func TestInsert_PriorityDescending(t *testing.T) {
	r := New()
	r.Insert(rec(1, 0))
	r.Insert(rec(2, 2))
	r.Insert(rec(3, 1))

	assert.Equal(t, []uint64{2, 3, 1}, ids(r.Bucket("ns", "evt")))
}

func TestInsert_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	r := New()
	r.Insert(rec(1, 1))
	r.Insert(rec(2, 1))
	r.Insert(rec(3, 0))
	r.Insert(rec(4, 1))

	assert.Equal(t, []uint64{1, 2, 4, 3}, ids(r.Bucket("ns", "evt")))
}

func TestRemove_CleansEmptyContainers(t *testing.T) {
	r := New()
	r.Insert(rec(1, 0))
	require.Equal(t, 1, r.Len())

	removed := r.Remove("ns", "evt", func(rc *Record) bool { return rc.ID == 1 })
	require.NotNil(t, removed)
	assert.Equal(t, uint64(1), removed.ID)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.namespaces, "empty namespace must be deleted")
}

func TestRemove_NoMatchIsNoop(t *testing.T) {
	r := New()
	r.Insert(rec(1, 0))

	assert.Nil(t, r.Remove("ns", "evt", func(rc *Record) bool { return rc.ID == 99 }))
	assert.Nil(t, r.Remove("other", "evt", func(rc *Record) bool { return true }))
	assert.Equal(t, 1, r.Len())
}

func TestResolveSeparator_ExactMatch(t *testing.T) {
	r := New()
	r.Insert(&Record{ID: 1, Separator: ":", Namespace: "ns", Event: "evt"})

	assert.Equal(t, ":", r.ResolveSeparator("ns:evt", "."))
	assert.Equal(t, ".", r.ResolveSeparator("ns.other", "."), "fallback when nothing matches")
}

func TestResolveSeparator_ExactWinsOverWildcard(t *testing.T) {
	r := New()
	r.Insert(&Record{ID: 1, Separator: ".", Namespace: "", Event: Wildcard})
	r.Insert(&Record{ID: 2, Separator: ":", Namespace: "ns", Event: "evt"})

	assert.Equal(t, ":", r.ResolveSeparator("ns:evt", "/"))
}

func TestResolveSeparator_NamespaceWildcard(t *testing.T) {
	r := New()
	r.Insert(&Record{ID: 1, Separator: ":", Namespace: "ns", Event: Wildcard})

	assert.Equal(t, ":", r.ResolveSeparator("ns:anything", "."))
	assert.Equal(t, ":", r.ResolveSeparator("ns:sub:deep", "."), "prefix containment")
	assert.Equal(t, ".", r.ResolveSeparator("other:evt", "."))
}

func TestResolveSeparator_EarliestWildcardRegistrationWins(t *testing.T) {
	// Both wildcard records can decompose "ns:evt" under their own
	// separator; resolution must not depend on bucket iteration order.
	for i := 0; i < 50; i++ {
		r := New()
		r.Insert(&Record{ID: 1, Separator: ":", Namespace: "ns", Event: Wildcard})
		r.Insert(&Record{ID: 2, Separator: ".", Namespace: "", Event: Wildcard})
		assert.Equal(t, ":", r.ResolveSeparator("ns:evt", "/"))
	}
	for i := 0; i < 50; i++ {
		r := New()
		r.Insert(&Record{ID: 1, Separator: ".", Namespace: "", Event: Wildcard})
		r.Insert(&Record{ID: 2, Separator: ":", Namespace: "ns", Event: Wildcard})
		assert.Equal(t, ".", r.ResolveSeparator("ns:evt", "/"))
	}
}

func TestIdentity(t *testing.T) {
	f := func(event string, args ...any) error { return nil }
	g := func(event string, args ...any) error { return nil }

	assert.Equal(t, Identity(f), Identity(f))
	assert.NotEqual(t, Identity(f), Identity(g))
}
