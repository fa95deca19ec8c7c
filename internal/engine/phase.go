package engine

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseWaiting    Phase = "waiting"
	PhaseInQuestion Phase = "in_question" // Question may still be nil right after game_start
	PhaseGameOver   Phase = "game_over"
)

// Panels is the set of view panels a renderer should draw for a state.
type Panels struct {
	Info        bool
	Lobby       bool
	Waiting     bool
	Question    bool
	Leaderboard bool
}

func DerivePanels(s State) Panels {
	p := Panels{Info: s.SeenRooms}
	if p.Info {
		switch s.Phase {
		case PhaseLobby:
			p.Lobby = true
		case PhaseWaiting:
			p.Waiting = true
		case PhaseInQuestion:
			p.Question = s.Question != nil
		}
	}
	// Question and leaderboard never show together.
	p.Leaderboard = s.Phase == PhaseGameOver && len(s.Results) > 0
	return p
}
