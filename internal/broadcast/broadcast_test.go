package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

func TestTopics(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "table.abc", TableTopic("abc"))
	assert.Equal(t, "table.abc.presence", PresenceTopic("abc"))
}

func TestMemoryBus(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	var first, second []int64
	sub1, err := bus.Subscribe("table.1", func(ev protocol.Event) { first = append(first, ev.Version) })
	require.NoError(t, err)
	_, err = bus.Subscribe("table.1", func(ev protocol.Event) { second = append(second, ev.Version) })
	require.NoError(t, err)
	_, err = bus.Subscribe("table.2", func(protocol.Event) { t.Error("wrong topic delivered") })
	require.NoError(t, err)

	ev, err := protocol.NewEvent(protocol.TypeGameState, "1", 1, struct{}{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, "table.1", ev))

	require.NoError(t, sub1.Unsubscribe())
	require.NoError(t, sub1.Unsubscribe())
	ev.Version = 2
	require.NoError(t, bus.Publish(ctx, "table.1", ev))

	assert.Equal(t, []int64{1}, first)
	assert.Equal(t, []int64{1, 2}, second)
	assert.Equal(t, 1, bus.Subscribers("table.1"))

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(ctx, "table.1", ev), ErrClosed)
	_, err = bus.Subscribe("table.1", func(protocol.Event) {})
	assert.ErrorIs(t, err, ErrClosed)
}
