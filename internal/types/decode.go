package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/DoyleJ11/quiz-client/internal/engine"
)

var ErrMalformedEvent = errors.New("malformed event")
var ErrUnknownEvent = errors.New("unknown event")

// Required fields are pointers so a missing key is distinguishable from a zero value.
type wireRoom struct {
	ID     *int `json:"id"`
	IsFull bool `json:"isFull"`
}

type wireWaitingRoom struct {
	RoomID   *int   `json:"roomId"`
	Username string `json:"username"`
}

type wirePlayers struct {
	Players *[]wirePlayer `json:"players"`
}

type wirePlayer struct {
	ID       playerID `json:"id"`
	Username string   `json:"username"`
	Score    int      `json:"score"`
}

type wireQuestion struct {
	Question *string  `json:"question"`
	Options  []string `json:"options"`
	Timer    *int     `json:"timer"`
	RoomID   *int     `json:"roomId"`
}

// playerID accepts both numeric and string ids.
type playerID string

func (p *playerID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = playerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	*p = playerID(n.String())
	return nil
}

// DecodeEvent turns one inbound event into an engine input. Any payload that
// is missing a required field yields ErrMalformedEvent; callers drop it.
func DecodeEvent(name string, args []json.RawMessage) (engine.Input, error) {
	switch name {
	case EventRooms:
		var rooms []wireRoom
		if err := decodeFirst(name, args, &rooms); err != nil {
			return nil, err
		}
		if rooms == nil {
			return nil, malformed(name, "null room list")
		}
		out := make([]engine.Room, 0, len(rooms))
		for i, r := range rooms {
			if r.ID == nil {
				return nil, malformed(name, "room %d: missing id", i)
			}
			out = append(out, engine.Room{ID: engine.RoomID(*r.ID), IsFull: r.IsFull})
		}
		return engine.RoomsReceived{Rooms: out}, nil

	case EventWaitingRoom:
		var p wireWaitingRoom
		if err := decodeFirst(name, args, &p); err != nil {
			return nil, err
		}
		if p.RoomID == nil {
			return nil, malformed(name, "missing roomId")
		}
		return engine.WaitingRoomEntered{RoomID: engine.RoomID(*p.RoomID), Username: p.Username}, nil

	case EventGameStart:
		var p wirePlayers
		if err := decodeFirst(name, args, &p); err != nil {
			return nil, err
		}
		// The roster is informational here; a missing list starts with none.
		var players []wirePlayer
		if p.Players != nil {
			players = *p.Players
		}
		return engine.GameStarted{Players: toResults(players)}, nil

	case EventNewQuestion:
		var p wireQuestion
		if err := decodeFirst(name, args, &p); err != nil {
			return nil, err
		}
		switch {
		case p.Question == nil:
			return nil, malformed(name, "missing question")
		case len(p.Options) == 0:
			return nil, malformed(name, "no options")
		case p.Timer == nil || *p.Timer < 0:
			return nil, malformed(name, "missing or negative timer")
		case p.RoomID == nil:
			return nil, malformed(name, "missing roomId")
		}
		return engine.QuestionReceived{Question: engine.Question{
			Text:            *p.Question,
			Options:         p.Options,
			DurationSeconds: *p.Timer,
			RoomID:          engine.RoomID(*p.RoomID),
		}}, nil

	case EventGameOver:
		var p wirePlayers
		if err := decodeFirst(name, args, &p); err != nil {
			return nil, err
		}
		if p.Players == nil {
			return nil, malformed(name, "missing players")
		}
		return engine.GameEnded{Players: toResults(*p.Players)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func decodeFirst(name string, args []json.RawMessage, v any) error {
	if len(args) == 0 {
		return malformed(name, "missing payload")
	}
	if err := json.Unmarshal(args[0], v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, name, err)
	}
	return nil
}

func malformed(name, format string, a ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedEvent, name, fmt.Sprintf(format, a...))
}

func toResults(players []wirePlayer) []engine.PlayerResult {
	out := make([]engine.PlayerResult, 0, len(players))
	for _, p := range players {
		out = append(out, engine.PlayerResult{
			ID:       string(p.ID),
			Username: p.Username,
			Score:    p.Score,
		})
	}
	return out
}

// ParseRoomID is used by callers that read room ids from user input.
func ParseRoomID(s string) (engine.RoomID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("room id %q: %w", s, err)
	}
	return engine.RoomID(n), nil
}
