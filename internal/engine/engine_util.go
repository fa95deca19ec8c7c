package engine

import "slices"

func NewEmptyState() State {
	return State{
		Phase: PhaseLobby,
		Rooms: []Room{},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	c := s
	c.Rooms = slices.Clone(s.Rooms)
	c.Results = slices.Clone(s.Results)
	if s.EditingRoom != nil {
		id := *s.EditingRoom
		c.EditingRoom = &id
	}
	if s.Question != nil {
		q := *s.Question
		q.Options = slices.Clone(s.Question.Options)
		c.Question = &q
	}
	return c
}

func ContainsEffect(effects []Effect, effectType EffectType) bool {
	for _, effect := range effects {
		if effect.Type == effectType {
			return true
		}
	}
	return false
}
