package conversation

import (
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
)

// State is the append-only transcript of one session.
// It is not safe for concurrent writers; the owning session serializes access.
type State struct {
	turns []tutor.Turn
}

func New() *State {
	return &State{}
}

func (s *State) Append(turn tutor.Turn) {
	s.turns = append(s.turns, turn)
}

// Current returns a snapshot; later appends do not show up in it.
func (s *State) Current() []tutor.Turn {
	out := make([]tutor.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *State) Reset() {
	s.turns = nil
}

func (s *State) Len() int {
	return len(s.turns)
}

// Last returns the newest turn, or nil when empty.
func (s *State) Last() tutor.Turn {
	if len(s.turns) == 0 {
		return nil
	}
	return s.turns[len(s.turns)-1]
}
