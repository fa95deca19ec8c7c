package engine

import (
	"errors"
	"testing"
)

func lobbyWithRooms(rooms ...Room) State {
	s := NewEmptyState()
	s.Rooms = rooms
	s.SeenRooms = true
	return s
}

func inQuestion(q Question) State {
	s := lobbyWithRooms(Room{ID: q.RoomID})
	s.Phase = PhaseInQuestion
	s.Question = &q
	s.QuestionSeq = 1
	return s
}

func mustApply(t *testing.T, s State, in Input) ([]Effect, State) {
	t.Helper()
	effects, next, err := Apply(s, in)
	if err != nil {
		t.Fatalf("Apply(%T): unexpected err %v", in, err)
	}
	return effects, next
}

func TestRoomsReplaceWholesale(t *testing.T) {
	s := NewEmptyState()
	_, s = mustApply(t, s, RoomsReceived{Rooms: []Room{{ID: 1}, {ID: 2, IsFull: true}}})
	_, s = mustApply(t, s, RoomsReceived{Rooms: []Room{{ID: 3}}})

	if len(s.Rooms) != 1 || s.Rooms[0].ID != 3 {
		t.Fatalf("want rooms [3], got %+v", s.Rooms)
	}
	if !s.SeenRooms {
		t.Fatalf("expected SeenRooms after room list")
	}

	_, s = mustApply(t, s, RoomsReceived{Rooms: nil})
	if len(s.Rooms) != 0 {
		t.Fatalf("want empty rooms, got %+v", s.Rooms)
	}
}

func TestSeenRoomsIsOneWay(t *testing.T) {
	s := Reduce([]Input{
		RoomsReceived{Rooms: []Room{{ID: 1}}},
		WaitingRoomEntered{RoomID: 1, Username: "alice"},
		SessionStarted{},
	})

	if s.Phase != PhaseLobby {
		t.Fatalf("want lobby after reconnect, got %v", s.Phase)
	}
	if !s.SeenRooms {
		t.Fatalf("SeenRooms must survive a return to lobby")
	}
	if !DerivePanels(s).Info {
		t.Fatalf("info panel must stay visible")
	}
}

func TestJoinRoomPreconditions(t *testing.T) {
	selected := RoomID(1)
	withSelection := lobbyWithRooms(Room{ID: 1})
	withSelection.EditingRoom = &selected

	cases := []struct {
		name    string
		setup   State
		cmd     JoinRoom
		wantErr error
	}{
		{
			name:    "no room selected",
			setup:   lobbyWithRooms(Room{ID: 1}),
			cmd:     JoinRoom{Username: "alice"},
			wantErr: ErrNoRoomSelected,
		},
		{
			name:    "empty username",
			setup:   withSelection,
			cmd:     JoinRoom{Username: ""},
			wantErr: ErrEmptyUsername,
		},
		{
			name:    "whitespace username",
			setup:   withSelection,
			cmd:     JoinRoom{Username: "   "},
			wantErr: ErrEmptyUsername,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			effects, next, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(effects) != 0 {
				t.Fatalf("rejected join must emit nothing, got %+v", effects)
			}
			if (next.EditingRoom == nil) != (tc.setup.EditingRoom == nil) {
				t.Fatalf("rejected join must not touch selection")
			}
		})
	}
}

func TestJoinRoom_EmitsAndClearsSelection(t *testing.T) {
	s := lobbyWithRooms(Room{ID: 1}, Room{ID: 2})
	_, s = mustApply(t, s, SelectRoom{RoomID: 2})
	if s.EditingRoom == nil || *s.EditingRoom != 2 {
		t.Fatalf("want room 2 selected, got %v", s.EditingRoom)
	}

	effects, s := mustApply(t, s, JoinRoom{Username: " alice "})
	if len(effects) != 1 || effects[0].Type != EffJoinRoom {
		t.Fatalf("want one JoinRoom effect, got %+v", effects)
	}
	if effects[0].RoomID != 2 || effects[0].Username != "alice" {
		t.Fatalf("unexpected join payload %+v", effects[0])
	}
	if s.EditingRoom != nil {
		t.Fatalf("selection must be cleared after join")
	}
	if s.Phase != PhaseLobby {
		t.Fatalf("join is not optimistic; want lobby, got %v", s.Phase)
	}
}

func TestSelectRoom(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		id      RoomID
		wantErr error
	}{
		{name: "joinable", setup: lobbyWithRooms(Room{ID: 1}), id: 1},
		{name: "full", setup: lobbyWithRooms(Room{ID: 1, IsFull: true}), id: 1, wantErr: ErrRoomFull},
		{name: "unknown", setup: lobbyWithRooms(Room{ID: 1}), id: 9, wantErr: ErrUnknownRoom},
		{name: "not in lobby", setup: inQuestion(Question{Text: "q", Options: []string{"a"}, RoomID: 1}), id: 1, wantErr: ErrWrongPhase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(tc.setup, SelectRoom{RoomID: tc.id})
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRoomsRefresh_CollapsesFormForFullRoom(t *testing.T) {
	s := lobbyWithRooms(Room{ID: 1})
	_, s = mustApply(t, s, SelectRoom{RoomID: 1})
	_, s = mustApply(t, s, RoomsReceived{Rooms: []Room{{ID: 1, IsFull: true}}})
	if s.EditingRoom != nil {
		t.Fatalf("form for a room that filled up must collapse")
	}
}

func TestSubmitAnswer_NoActiveQuestion(t *testing.T) {
	for _, s := range []State{
		NewEmptyState(),
		Reduce([]Input{RoomsReceived{}, WaitingRoomEntered{RoomID: 1}}),
		Reduce([]Input{RoomsReceived{}, GameStarted{}}),
	} {
		effects, next, err := Apply(s, SubmitAnswer{Option: "4"})
		if !errors.Is(err, ErrNoActiveQuestion) {
			t.Fatalf("phase %v: want ErrNoActiveQuestion, got %v", s.Phase, err)
		}
		if len(effects) != 0 || next.Selected != "" {
			t.Fatalf("phase %v: rejected submit must be a no-op", s.Phase)
		}
	}
}

func TestSubmitAnswer_ResendsAndUpdatesSelection(t *testing.T) {
	s := inQuestion(Question{Text: "2+2?", Options: []string{"3", "4"}, DurationSeconds: 10, RoomID: 7})

	effects, s := mustApply(t, s, SubmitAnswer{Option: "3"})
	if s.Selected != "3" || effects[0].RoomID != 7 || effects[0].Option != "3" {
		t.Fatalf("unexpected first submit: state=%q effects=%+v", s.Selected, effects)
	}

	effects, s = mustApply(t, s, SubmitAnswer{Option: "4"})
	if s.Selected != "4" || !ContainsEffect(effects, EffSubmitAnswer) {
		t.Fatalf("correction must re-send and move selection, got %q %+v", s.Selected, effects)
	}

	_, _, err := Apply(s, SubmitAnswer{Option: "5"})
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("want ErrUnknownOption, got %v", err)
	}
}

func TestNewQuestion_ResetsCountdownAndSelection(t *testing.T) {
	s := inQuestion(Question{Text: "first", Options: []string{"a", "b"}, DurationSeconds: 10, RoomID: 1})
	s.Selected = "a"

	second := Question{Text: "second", Options: []string{"a", "c"}, DurationSeconds: 15, RoomID: 1}
	effects, next := mustApply(t, s, QuestionReceived{Question: second})

	if next.Selected != "" {
		t.Fatalf("selection must be cleared on a new question, got %q", next.Selected)
	}
	if next.QuestionSeq != s.QuestionSeq+1 {
		t.Fatalf("want seq %d, got %d", s.QuestionSeq+1, next.QuestionSeq)
	}
	if len(effects) != 1 || effects[0].Type != EffResetCountdown {
		t.Fatalf("want ResetCountdown, got %+v", effects)
	}
	if effects[0].Seconds != 15 || effects[0].Epoch != next.QuestionSeq {
		t.Fatalf("unexpected reset %+v", effects[0])
	}
	if !next.Question.Equal(second) {
		t.Fatalf("question not installed: %+v", next.Question)
	}
}

func TestNewQuestion_DuplicateDeliveryIsNoop(t *testing.T) {
	q := Question{Text: "q", Options: []string{"a"}, DurationSeconds: 5, RoomID: 1}
	s := inQuestion(q)
	s.Selected = "a"

	effects, next := mustApply(t, s, QuestionReceived{Question: q})
	if len(effects) != 0 || next.QuestionSeq != s.QuestionSeq || next.Selected != "a" {
		t.Fatalf("duplicate question must not reset anything")
	}
}

func TestGameStart_DuplicateKeepsQuestion(t *testing.T) {
	s := inQuestion(Question{Text: "q", Options: []string{"a"}, RoomID: 1})
	_, next := mustApply(t, s, GameStarted{})
	if next.Question == nil {
		t.Fatalf("repeated game_start wiped the active question")
	}
}

func TestGameOver_ShowsLeaderboardInOrder(t *testing.T) {
	s := inQuestion(Question{Text: "q", Options: []string{"a"}, RoomID: 1})
	players := []PlayerResult{
		{ID: "2", Username: "bob", Score: 50},
		{ID: "1", Username: "alice", Score: 100},
	}

	effects, next := mustApply(t, s, GameEnded{Players: players})
	if !ContainsEffect(effects, EffHaltCountdown) {
		t.Fatalf("want HaltCountdown, got %+v", effects)
	}
	if next.Question != nil {
		t.Fatalf("question must be cleared")
	}

	panels := DerivePanels(next)
	if panels.Question || !panels.Leaderboard {
		t.Fatalf("want leaderboard only, got %+v", panels)
	}
	for i, p := range players {
		if next.Results[i] != p {
			t.Fatalf("result %d: want %+v, got %+v", i, p, next.Results[i])
		}
	}

	players[0].Score = 0
	if next.Results[0].Score != 50 {
		t.Fatalf("results must not alias the payload")
	}
}

func TestPhasesAreExclusive(t *testing.T) {
	inputs := []Input{
		RoomsReceived{Rooms: []Room{{ID: 1}}},
		WaitingRoomEntered{RoomID: 1, Username: "alice"},
		GameStarted{},
		QuestionReceived{Question: Question{Text: "q", Options: []string{"a"}, DurationSeconds: 3, RoomID: 1}},
		GameEnded{Players: []PlayerResult{{ID: "1", Username: "alice", Score: 1}}},
	}

	s := NewEmptyState()
	for _, in := range inputs {
		_, s = mustApply(t, s, in)
		p := DerivePanels(s)
		shown := 0
		for _, v := range []bool{p.Lobby, p.Waiting, p.Question} {
			if v {
				shown++
			}
		}
		if shown > 1 {
			t.Fatalf("after %T: more than one main panel visible %+v", in, p)
		}
		if p.Question && p.Leaderboard {
			t.Fatalf("after %T: question and leaderboard both visible", in)
		}
	}
}

func TestSessionStarted_DiscardsStaleState(t *testing.T) {
	s := inQuestion(Question{Text: "q", Options: []string{"a"}, RoomID: 1})
	s.QuestionSeq = 4

	effects, next := mustApply(t, s, SessionStarted{})
	if next.Phase != PhaseLobby || next.Question != nil {
		t.Fatalf("reconnect must return to lobby, got %v", next.Phase)
	}
	if next.QuestionSeq != 4 {
		t.Fatalf("epoch must stay monotonic, got %d", next.QuestionSeq)
	}
	if len(next.Rooms) != 1 {
		t.Fatalf("room snapshot is kept until the next refresh")
	}
	if effects[0].Type != EffRequestRooms || !ContainsEffect(effects, EffHaltCountdown) {
		t.Fatalf("want RequestRooms then HaltCountdown, got %+v", effects)
	}
}

func TestApply_UnsupportedInput(t *testing.T) {
	_, _, err := Apply(NewEmptyState(), nil)
	if !errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("want ErrUnsupportedInput, got %v", err)
	}
}
