package types

import (
	"github.com/DoyleJ11/quiz-client/internal/engine"
)

// Server -> client event names.
const (
	EventRooms       = "rooms"
	EventWaitingRoom = "waiting_room"
	EventGameStart   = "game_start"
	EventNewQuestion = "newQuestion"
	EventGameOver    = "gameOver"
)

// Client -> server event names.
const (
	EventAvailableRooms = "available_rooms"
	EventCreateRoom     = "create_room"
	EventJoinRoom       = "join_room"
	EventSubmitAnswer   = "submitAnswer"
)

// ClientMessage is one outbound event with its positional arguments.
type ClientMessage struct {
	Event string
	Args  []any
}

// ServerMessage is one inbound event as the server would send it.
type ServerMessage struct {
	Event string
	Args  []any
}

type Room struct {
	ID     int  `json:"id"`
	IsFull bool `json:"isFull"`
}

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type JoinRoomPayload struct {
	RoomID   int    `json:"roomId"`
	Username string `json:"username"`
}

type WaitingRoomPayload struct {
	RoomID   int    `json:"roomId"`
	Username string `json:"username"`
}

type PlayersPayload struct {
	Players []Player `json:"players"`
}

type NewQuestionPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Timer    int      `json:"timer"`
	RoomID   int      `json:"roomId"`
}

// FromEffect maps an engine effect onto the event the server expects.
// Effects that stay on the client (countdown control) report false.
func FromEffect(e engine.Effect) (ClientMessage, bool) {
	switch e.Type {
	case engine.EffRequestRooms:
		return ClientMessage{Event: EventAvailableRooms}, true
	case engine.EffCreateRoom:
		return ClientMessage{Event: EventCreateRoom}, true
	case engine.EffJoinRoom:
		return ClientMessage{
			Event: EventJoinRoom,
			Args:  []any{JoinRoomPayload{RoomID: int(e.RoomID), Username: e.Username}},
		}, true
	case engine.EffSubmitAnswer:
		return ClientMessage{Event: EventSubmitAnswer, Args: []any{int(e.RoomID), e.Option}}, true
	default:
		return ClientMessage{}, false
	}
}

func RoomsMessage(rooms ...Room) ServerMessage {
	if rooms == nil {
		rooms = []Room{}
	}
	return ServerMessage{Event: EventRooms, Args: []any{rooms}}
}

func WaitingRoomMessage(roomID int, username string) ServerMessage {
	return ServerMessage{Event: EventWaitingRoom, Args: []any{WaitingRoomPayload{RoomID: roomID, Username: username}}}
}

func GameStartMessage(players ...Player) ServerMessage {
	if players == nil {
		players = []Player{}
	}
	return ServerMessage{Event: EventGameStart, Args: []any{PlayersPayload{Players: players}}}
}

func NewQuestionMessage(q NewQuestionPayload) ServerMessage {
	return ServerMessage{Event: EventNewQuestion, Args: []any{q}}
}

func GameOverMessage(players ...Player) ServerMessage {
	if players == nil {
		players = []Player{}
	}
	return ServerMessage{Event: EventGameOver, Args: []any{PlayersPayload{Players: players}}}
}
