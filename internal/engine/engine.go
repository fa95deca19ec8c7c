package engine

import (
	"errors"
	"slices"
	"strings"
)

var ErrWrongPhase = errors.New("not allowed in current phase")
var ErrNoRoomSelected = errors.New("no room selected")
var ErrEmptyUsername = errors.New("username is empty")
var ErrNoActiveQuestion = errors.New("no active question")
var ErrUnknownOption = errors.New("option not offered by question")
var ErrUnknownRoom = errors.New("unknown room")
var ErrRoomFull = errors.New("room is full")
var ErrUnsupportedInput = errors.New("unsupported input")

type RoomID int

type Room struct {
	ID     RoomID
	IsFull bool
}

type WaitingRoom struct {
	RoomID   RoomID
	Username string
}

type Question struct {
	Text            string
	Options         []string
	DurationSeconds int
	RoomID          RoomID
}

// Equal reports whether q and o carry the same payload.
func (q Question) Equal(o Question) bool {
	return q.Text == o.Text &&
		q.DurationSeconds == o.DurationSeconds &&
		q.RoomID == o.RoomID &&
		slices.Equal(q.Options, o.Options)
}

type PlayerResult struct {
	ID       string
	Username string
	Score    int
}

// State is the client's whole view of the game. Apply is its only writer.
type State struct {
	Phase     Phase
	Rooms     []Room
	SeenRooms bool // one-way: set by the first room list, never cleared

	EditingRoom *RoomID // room whose inline username form is open
	Waiting     WaitingRoom

	Question    *Question
	QuestionSeq uint64 // bumped per installed question, tags countdown resets
	Selected    string

	Results []PlayerResult
}

// Input is anything that can drive a transition: server events and user intents.
type Input interface{ isInput() }

// Server -> client
type RoomsReceived struct{ Rooms []Room }

type WaitingRoomEntered struct {
	RoomID   RoomID
	Username string
}

type GameStarted struct{ Players []PlayerResult }

type QuestionReceived struct{ Question Question }

type GameEnded struct{ Players []PlayerResult }

// SessionStarted is fed by the transport on every (re)connect.
type SessionStarted struct{}

// User -> client
type CreateRoom struct{}

type SelectRoom struct{ RoomID RoomID }

type JoinRoom struct{ Username string }

type SubmitAnswer struct{ Option string }

func (RoomsReceived) isInput()      {}
func (WaitingRoomEntered) isInput() {}
func (GameStarted) isInput()        {}
func (QuestionReceived) isInput()   {}
func (GameEnded) isInput()          {}
func (SessionStarted) isInput()     {}
func (CreateRoom) isInput()         {}
func (SelectRoom) isInput()         {}
func (JoinRoom) isInput()           {}
func (SubmitAnswer) isInput()       {}

type EffectType string

const (
	EffRequestRooms   EffectType = "RequestRooms"
	EffCreateRoom     EffectType = "CreateRoom"
	EffJoinRoom       EffectType = "JoinRoom"
	EffSubmitAnswer   EffectType = "SubmitAnswer"
	EffResetCountdown EffectType = "ResetCountdown"
	EffHaltCountdown  EffectType = "HaltCountdown"
)

/*
	RoomsReceived      -> (none)
	WaitingRoomEntered -> EffHaltCountdown (only when leaving a question)
	GameStarted        -> (none)
	QuestionReceived   -> EffResetCountdown
	GameEnded          -> EffHaltCountdown
	SessionStarted     -> EffRequestRooms -> EffHaltCountdown
	CreateRoom         -> EffCreateRoom
	JoinRoom           -> EffJoinRoom
	SubmitAnswer       -> EffSubmitAnswer
*/

type Effect struct {
	Type     EffectType
	RoomID   RoomID
	Username string
	Option   string
	Epoch    uint64
	Seconds  int
}

func Apply(s State, in Input) ([]Effect, State, error) {
	next := s

	switch in := in.(type) {
	case RoomsReceived:
		next.Rooms = slices.Clone(in.Rooms)
		next.SeenRooms = true

		// Collapse the form if the room being edited vanished or filled up.
		if next.EditingRoom != nil {
			if _, err := joinableRoom(next.Rooms, *next.EditingRoom); err != nil {
				next.EditingRoom = nil
			}
		}
		return nil, next, nil

	case WaitingRoomEntered:
		next.Phase = PhaseWaiting
		next.Waiting = WaitingRoom{RoomID: in.RoomID, Username: in.Username}
		next.EditingRoom = nil
		next.Question = nil
		next.Selected = ""
		next.Results = nil

		if s.Phase == PhaseInQuestion {
			return []Effect{{Type: EffHaltCountdown}}, next, nil
		}
		return nil, next, nil

	case GameStarted:
		// A repeated game_start must not wipe a question already on screen.
		if s.Phase == PhaseInQuestion {
			return nil, s, nil
		}
		next.Phase = PhaseInQuestion
		next.Waiting = WaitingRoom{}
		next.EditingRoom = nil
		next.Question = nil
		next.Selected = ""
		next.Results = nil
		return nil, next, nil

	case QuestionReceived:
		if s.Phase == PhaseInQuestion && s.Question != nil && s.Question.Equal(in.Question) {
			return nil, s, nil
		}

		q := in.Question
		q.Options = slices.Clone(q.Options)

		next.Phase = PhaseInQuestion
		next.Waiting = WaitingRoom{}
		next.EditingRoom = nil
		next.Question = &q
		next.QuestionSeq++
		next.Selected = ""
		next.Results = nil

		events := []Effect{
			{Type: EffResetCountdown, Epoch: next.QuestionSeq, Seconds: q.DurationSeconds},
		}
		return events, next, nil

	case GameEnded:
		next.Phase = PhaseGameOver
		next.Results = slices.Clone(in.Players)
		next.Waiting = WaitingRoom{}
		next.EditingRoom = nil
		next.Question = nil
		next.Selected = ""
		return []Effect{{Type: EffHaltCountdown}}, next, nil

	case SessionStarted:
		fresh := NewEmptyState()
		fresh.Rooms = s.Rooms
		fresh.SeenRooms = s.SeenRooms
		// Keep the epoch monotonic so readings from the old session never match.
		fresh.QuestionSeq = s.QuestionSeq

		events := []Effect{
			{Type: EffRequestRooms},
			{Type: EffHaltCountdown},
		}
		return events, fresh, nil

	case CreateRoom:
		return []Effect{{Type: EffCreateRoom}}, s, nil

	case SelectRoom:
		if s.Phase != PhaseLobby {
			return nil, s, ErrWrongPhase
		}
		room, err := joinableRoom(s.Rooms, in.RoomID)
		if err != nil {
			return nil, s, err
		}
		id := room.ID
		next.EditingRoom = &id
		return nil, next, nil

	case JoinRoom:
		if s.EditingRoom == nil {
			return nil, s, ErrNoRoomSelected
		}
		username := strings.TrimSpace(in.Username)
		if username == "" {
			return nil, s, ErrEmptyUsername
		}

		events := []Effect{
			{Type: EffJoinRoom, RoomID: *s.EditingRoom, Username: username},
		}
		next.EditingRoom = nil
		return events, next, nil

	case SubmitAnswer:
		if s.Phase != PhaseInQuestion || s.Question == nil {
			return nil, s, ErrNoActiveQuestion
		}
		if !slices.Contains(s.Question.Options, in.Option) {
			return nil, s, ErrUnknownOption
		}

		next.Selected = in.Option
		events := []Effect{
			{Type: EffSubmitAnswer, RoomID: s.Question.RoomID, Option: in.Option},
		}
		return events, next, nil

	default:
		return nil, s, ErrUnsupportedInput
	}
}

// Reduce replays inputs from an empty state, skipping rejected ones.
func Reduce(inputs []Input) State {
	s := NewEmptyState()
	for _, in := range inputs {
		_, next, err := Apply(s, in)
		if err != nil {
			continue
		}
		s = next
	}
	return s
}

func joinableRoom(rooms []Room, id RoomID) (Room, error) {
	i := slices.IndexFunc(rooms, func(r Room) bool { return r.ID == id })
	if i < 0 {
		return Room{}, ErrUnknownRoom
	}
	if rooms[i].IsFull {
		return Room{}, ErrRoomFull
	}
	return rooms[i], nil
}
