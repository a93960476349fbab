package dispatch

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobal_ForwardsToSharedDispatcher(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var count atomic.Int64
	id, err := On("ns.evt", func(event string, args ...any) error {
		count.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	Emit("ns.evt")
	assert.Equal(t, int64(1), count.Load())

	subs := ListSubscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "ns.evt", subs[0].Event)

	infos := InspectSubscription("ns.evt")
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)

	RemoveSubscriptionByID("ns.evt", id)
	Emit("ns.evt")
	assert.Equal(t, int64(1), count.Load())
}

func TestGlobal_SeparatorRoundTrip(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	assert.Equal(t, DefaultSeparator, GlobalSeparator())
	SetGlobalSeparator("::")
	assert.Equal(t, "::", GlobalSeparator())
}

func TestGlobal_ResetDropsRegistrations(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var count atomic.Int64
	cb := func(event string, args ...any) error {
		count.Add(1)
		return nil
	}
	_, err := On("evt", cb, nil)
	require.NoError(t, err)

	Reset()
	Emit("evt")
	assert.Equal(t, int64(0), count.Load())

	assert.NotPanics(t, func() { Off("evt", cb) })
}
