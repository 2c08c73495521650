package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func drainFrame(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return &env
	default:
		return nil
	}
}

func TestBroadcastToRoomIncludesOrigin(t *testing.T) {
	hub := NewHub()
	origin := newClient("c1", nil)
	other := newClient("c2", nil)
	outside := newClient("c3", nil)

	hub.JoinRoom(10, origin)
	hub.JoinRoom(10, other)
	hub.JoinRoom(11, outside)

	require.NoError(t, hub.BroadcastToRoom(10, EventMessageNew, map[string]string{"content": "hi"}))

	for _, c := range []*Client{origin, other} {
		env := drainFrame(t, c)
		require.NotNil(t, env)
		require.Equal(t, EventMessageNew, env.Event)
	}
	require.Nil(t, drainFrame(t, outside))
}

func TestRelayToRoomExcludesOrigin(t *testing.T) {
	hub := NewHub()
	origin := newClient("c1", nil)
	other := newClient("c2", nil)

	hub.JoinRoom(10, origin)
	hub.JoinRoom(10, other)

	require.NoError(t, hub.RelayToRoom(10, origin, EventTypingStart, TypingEvent{Username: "alice"}))

	require.Nil(t, drainFrame(t, origin))
	env := drainFrame(t, other)
	require.NotNil(t, env)
	require.Equal(t, EventTypingStart, env.Event)

	var typing TypingEvent
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	require.Equal(t, "alice", typing.Username)
}

func TestSendToUserHitsEveryConnection(t *testing.T) {
	hub := NewHub()
	tabOne := newClient("c1", nil)
	tabTwo := newClient("c2", nil)
	stranger := newClient("c3", nil)

	hub.BindUser(7, tabOne)
	hub.BindUser(7, tabTwo)
	hub.BindUser(9, stranger)

	require.NoError(t, hub.SendToUser(7, EventCallEnded, struct{}{}))

	require.NotNil(t, drainFrame(t, tabOne))
	require.NotNil(t, drainFrame(t, tabTwo))
	require.Nil(t, drainFrame(t, stranger))
}

func TestSendToUnknownUserIsNoop(t *testing.T) {
	hub := NewHub()
	c := newClient("c1", nil)
	hub.BindUser(1, c)

	require.NoError(t, hub.SendToUser(999, EventCallEnded, struct{}{}))
	require.Nil(t, drainFrame(t, c))
}

func TestUnbindAndRoomCleanup(t *testing.T) {
	hub := NewHub()
	c := newClient("c1", nil)

	hub.BindUser(1, c)
	hub.JoinRoom(10, c)
	hub.JoinRoom(11, c)
	require.Equal(t, 1, hub.RoomSize(10))

	hub.RemoveFromAllRooms(c)
	hub.UnbindUser(1, c)

	require.Equal(t, 0, hub.RoomSize(10))
	require.Equal(t, 0, hub.RoomSize(11))
	require.NoError(t, hub.SendToUser(1, EventCallEnded, struct{}{}))
	require.Nil(t, drainFrame(t, c))
}

func TestBroadcastAllReachesUnidentifiedConnections(t *testing.T) {
	hub := NewHub()
	identified := newClient("c1", nil)
	fresh := newClient("c2", nil)

	hub.Register(identified)
	hub.Register(fresh)
	hub.BindUser(1, identified)

	require.NoError(t, hub.BroadcastAll(EventUsersOnline, []int{1}))
	require.NotNil(t, drainFrame(t, identified))
	require.NotNil(t, drainFrame(t, fresh))

	hub.Unregister(fresh)
	require.NoError(t, hub.BroadcastAll(EventUsersOnline, []int{1}))
	require.NotNil(t, drainFrame(t, identified))
	require.Nil(t, drainFrame(t, fresh))
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	c := newClient("c1", nil)
	hub.BindUser(1, c)

	// no writePump draining; fill the buffer and one more
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, hub.SendToUser(1, EventMessageNew, map[string]int{"n": i}))
	}
	err := c.TrySend([]byte(`{"event":"message:new"}`))
	require.ErrorIs(t, err, ErrBackpressure)
}
