package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/quiz-client/internal/countdown"
	"github.com/DoyleJ11/quiz-client/internal/engine"
	"github.com/DoyleJ11/quiz-client/internal/fakeserver"
	"github.com/DoyleJ11/quiz-client/internal/session"
	"github.com/DoyleJ11/quiz-client/internal/types"
	"github.com/DoyleJ11/quiz-client/internal/ws"
)

func expectEvent(t *testing.T, srv *fakeserver.Server, event string) fakeserver.ClientEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-srv.Received():
			if ev.Event == event {
				return ev
			}
		case <-deadline:
			t.Fatalf("server never received %s", event)
			return fakeserver.ClientEvent{}
		}
	}
}

func eventually(t *testing.T, s *session.Session, ok func(session.View) bool) session.View {
	t.Helper()
	var last session.View
	require.Eventually(t, func() bool {
		v, err := s.Snapshot(context.Background())
		if err != nil {
			return false
		}
		last = v
		return ok(v)
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func TestSession_OverTheWire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)

	srv := fakeserver.Start(ctx, log, fakeserver.DefaultOptions())
	defer srv.Close()

	timer := countdown.New(ctx, clockwork.NewFakeClock(), log)
	s := session.New(ctx, nil, timer, log)
	cfg := ws.DefaultConfig(srv.URL())
	cfg.ReconnectWait = 20 * time.Millisecond
	client := ws.NewClient(cfg, s, log)
	s.SetEmitter(client)
	go func() { _ = client.Run(ctx) }()
	defer client.Close()

	// Every session opens by asking for the room list.
	expectEvent(t, srv, types.EventAvailableRooms)
	require.Eventually(t, func() bool {
		n, err := srv.Peers(ctx)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Push(types.RoomsMessage(types.Room{ID: 1}, types.Room{ID: 2, IsFull: true})))
	v := eventually(t, s, func(v session.View) bool { return len(v.State.Rooms) == 2 })
	assert.True(t, v.Panels.Info)
	assert.True(t, v.Panels.Lobby)

	require.NoError(t, s.SelectRoom(ctx, 1))
	require.NoError(t, s.JoinRoom(ctx, "  alice "))
	join := expectEvent(t, srv, types.EventJoinRoom)
	require.Len(t, join.Args, 1)
	assert.JSONEq(t, `{"roomId":1,"username":"alice"}`, string(join.Args[0]))

	require.NoError(t, srv.Push(types.WaitingRoomMessage(1, "alice")))
	eventually(t, s, func(v session.View) bool { return v.Panels.Waiting })

	require.NoError(t, srv.Push(types.GameStartMessage(types.Player{ID: "p1", Username: "alice"})))
	require.NoError(t, srv.Push(types.NewQuestionMessage(types.NewQuestionPayload{
		Question: "2+2?", Options: []string{"3", "4"}, Timer: 10, RoomID: 1,
	})))
	v = eventually(t, s, func(v session.View) bool { return v.Panels.Question })
	assert.False(t, v.Panels.Waiting)
	assert.Equal(t, 10, v.Remaining)

	require.NoError(t, s.SubmitAnswer(ctx, "4"))
	answer := expectEvent(t, srv, types.EventSubmitAnswer)
	require.Len(t, answer.Args, 2)
	var room int
	var option string
	require.NoError(t, json.Unmarshal(answer.Args[0], &room))
	require.NoError(t, json.Unmarshal(answer.Args[1], &option))
	assert.Equal(t, 1, room)
	assert.Equal(t, "4", option)

	require.NoError(t, srv.Push(types.GameOverMessage(
		types.Player{ID: "p1", Username: "alice", Score: 100},
		types.Player{ID: "p2", Username: "bob", Score: 40},
	)))
	v = eventually(t, s, func(v session.View) bool { return v.Panels.Leaderboard })
	assert.False(t, v.Panels.Question)
	assert.Equal(t, []engine.PlayerResult{
		{ID: "p1", Username: "alice", Score: 100},
		{ID: "p2", Username: "bob", Score: 40},
	}, v.State.Results)

	// A dropped connection returns the client to the lobby.
	require.NoError(t, srv.KickAll())
	expectEvent(t, srv, types.EventAvailableRooms)
	v = eventually(t, s, func(v session.View) bool { return v.State.Phase == engine.PhaseLobby })
	assert.Empty(t, v.State.Results)
}
