package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/server"
	"github.com/Silozo17/homeholdem-sub001/internal/store/memory"
	"github.com/Silozo17/homeholdem-sub001/internal/syncclient"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
)

type testEnv struct {
	t       *testing.T
	url     string
	manager *table.Manager
	bus     *broadcast.MemoryBus
	logger  *log.Logger
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithClock(t, quartz.NewReal())
}

func newEnvWithClock(t *testing.T, clock quartz.Clock) *testEnv {
	t.Helper()
	logger := log.New(io.Discard)
	bus := broadcast.NewMemoryBus()
	manager := table.NewManager(table.Options{Store: memory.New(), Publisher: bus, Clock: clock, Logger: logger})
	srv := server.New(server.Config{AllowedOrigins: []string{"*"}, JWTSecret: "secret"}, manager, nil, bus, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, url: ts.URL, manager: manager, bus: bus, logger: logger}
}

func (e *testEnv) api(player string) *API {
	e.t.Helper()
	tok, err := server.MintToken(server.NewAuth("secret"), player, time.Hour)
	require.NoError(e.t, err)
	return NewAPI(e.url, tok)
}

func TestAPIPlaysHand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newEnv(t)

	sess, err := env.manager.Create(ctx, table.Config{
		Name: "Friday", HostID: "alice", MaxSeats: 6, SmallBlind: 5, BigBlind: 10, BuyInMin: 100, BuyInMax: 1000,
	})
	require.NoError(t, err)
	id := sess.ID()

	alice, bob := env.api("alice"), env.api("bob")
	seat, err := alice.Join(ctx, id, protocol.JoinRequest{Seat: 1, BuyIn: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Seat)

	_, err = bob.Join(ctx, id, protocol.JoinRequest{Seat: 1, BuyIn: 500})
	require.ErrorIs(t, err, table.ErrSeatTaken)
	_, err = bob.Join(ctx, id, protocol.JoinRequest{Seat: 2, BuyIn: 500})
	require.NoError(t, err)

	_, err = bob.Deal(ctx, id)
	require.ErrorIs(t, err, table.ErrNotAuthorized)

	dealt, err := alice.Deal(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, dealt.HandID)

	cards, err := alice.MyCards(ctx, id, "")
	require.NoError(t, err)
	assert.Len(t, cards.Cards, 2)

	resolved, err := bob.ResolveTimeout(ctx, id, dealt.HandID)
	require.NoError(t, err)
	assert.False(t, resolved, "turn is not overdue yet")

	state, err := bob.State(ctx, id)
	require.NoError(t, err)
	actor := state.Seat(state.ActorSeat).PlayerID
	waiting := map[string]*API{"alice": alice, "bob": bob}
	other := "alice"
	if actor == "alice" {
		other = "bob"
	}

	err = waiting[other].Act(ctx, id, protocol.ActionRequest{HandID: dealt.HandID, Action: game.Call})
	require.ErrorIs(t, err, table.ErrNotYourTurn)

	require.NoError(t, waiting[actor].Heartbeat(ctx, id))
	require.NoError(t, waiting[actor].Act(ctx, id, protocol.ActionRequest{HandID: dealt.HandID, Action: game.Fold}))

	result, err := alice.Result(ctx, id, dealt.HandID)
	require.NoError(t, err)
	require.Len(t, result.Winners, 1)
	assert.NotEmpty(t, result.Seed)

	records, err := alice.Actions(ctx, id, dealt.HandID)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, game.Fold, records[len(records)-1].Action)

	left, err := alice.Leave(ctx, id)
	require.NoError(t, err)
	assert.Positive(t, left.Stack)

	_, err = alice.State(ctx, "missing")
	assert.Equal(t, protocol.CodeNotFound, protocol.CodeOf(err))
}

func TestAPIResolvesOverdueTurn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	env := newEnvWithClock(t, clock)

	sess, err := env.manager.Create(ctx, table.Config{
		Name: "Friday", HostID: "alice", MaxSeats: 6, SmallBlind: 5, BigBlind: 10, BuyInMin: 100, BuyInMax: 1000,
	})
	require.NoError(t, err)
	id := sess.ID()

	alice, bob := env.api("alice"), env.api("bob")
	_, err = alice.Join(ctx, id, protocol.JoinRequest{Seat: 1, BuyIn: 500})
	require.NoError(t, err)
	_, err = bob.Join(ctx, id, protocol.JoinRequest{Seat: 2, BuyIn: 500})
	require.NoError(t, err)
	dealt, err := alice.Deal(ctx, id)
	require.NoError(t, err)
	before := sess.Version()

	clock.Advance(31 * time.Second).MustWait(ctx)
	resolved, err := bob.ResolveTimeout(ctx, id, dealt.HandID)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Greater(t, sess.Version(), before)

	resolved, err = bob.ResolveTimeout(ctx, id, "stale")
	require.NoError(t, err)
	assert.False(t, resolved)
}

func TestAPIWithoutToken(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	err := NewAPI(env.url, "").Heartbeat(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, protocol.CodeNotAuthorized, protocol.CodeOf(err))
}

func TestStreamFeedsSyncClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newEnv(t)

	sess, err := env.manager.Create(ctx, table.Config{
		Name: "Friday", HostID: "alice", MaxSeats: 6, SmallBlind: 5, BigBlind: 10, BuyInMin: 100, BuyInMax: 1000,
	})
	require.NoError(t, err)
	id := sess.ID()

	alice, bob := env.api("alice"), env.api("bob")
	_, err = alice.Join(ctx, id, protocol.JoinRequest{Seat: 1, BuyIn: 500})
	require.NoError(t, err)
	_, err = bob.Join(ctx, id, protocol.JoinRequest{Seat: 2, BuyIn: 500})
	require.NoError(t, err)

	tok, err := server.MintToken(server.NewAuth("secret"), "bob", time.Hour)
	require.NoError(t, err)
	stream, err := Dial(ctx, StreamOptions{BaseURL: env.url, TableID: id, Token: tok, Logger: env.logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	follower := syncclient.New(syncclient.Options{
		TableID: id, PlayerID: "bob", API: bob, Channel: stream, Logger: env.logger,
	})
	require.NoError(t, follower.Connect(ctx))
	require.Eventually(t, func() bool {
		return env.bus.Subscribers(broadcast.TableTopic(id)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	dealt, err := alice.Deal(ctx, id)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := follower.View()
		return v.State.HandID == dealt.HandID && len(v.Cards) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, sess.Version(), follower.State().Version)

	// Bob's presence beat travels through the gateway back to the stream
	require.Eventually(t, func() bool {
		return len(follower.OnlinePlayers()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"bob"}, follower.OnlinePlayers())
}

func TestStreamRedialsAfterDrop(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tables/t1/ws", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if dials.Add(1) == 1 {
			return
		}
		ev, _ := protocol.NewEvent(protocol.TypeChatEmoji, "t1", 0, protocol.ChatRequest{Emoji: "👍"}, time.Now())
		_ = conn.WriteJSON(protocol.Frame{Topic: broadcast.TableTopic("t1"), Event: ev})
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(ts.Close)

	var dropped, restored atomic.Int32
	received := make(chan protocol.Event, 1)
	stream, err := Dial(context.Background(), StreamOptions{
		BaseURL:   ts.URL,
		TableID:   "t1",
		Token:     "tok",
		Logger:    log.New(io.Discard),
		OnDrop:    func() { dropped.Add(1) },
		OnRestore: func() { restored.Add(1) },
	})
	require.NoError(t, err)
	_, err = stream.Subscribe(broadcast.TableTopic("t1"), func(ev protocol.Event) { received <- ev })
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, protocol.TypeChatEmoji, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no event after redial")
	}
	assert.Equal(t, int32(1), dropped.Load())
	assert.Equal(t, int32(1), restored.Load())

	require.NoError(t, stream.Close())
	select {
	case <-stream.Done():
	default:
		t.Fatal("stream still running after Close")
	}
	_, err = stream.Subscribe("x", func(protocol.Event) {})
	assert.ErrorIs(t, err, broadcast.ErrClosed)
}

func TestStreamDropsSilentServer(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never reads, so the client's pings go unanswered.
		<-release
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	dropped := make(chan struct{}, 1)
	stream, err := Dial(context.Background(), StreamOptions{
		BaseURL:  ts.URL,
		TableID:  "t1",
		Logger:   log.New(io.Discard),
		PongWait: 200 * time.Millisecond,
		OnDrop: func() {
			select {
			case dropped <- struct{}{}:
			default:
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	select {
	case <-dropped:
	case <-time.After(5 * time.Second):
		t.Fatal("silent connection was never dropped")
	}
}
