package store

import (
	"errors"
	"sync"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/conversation"
)

var (
	ErrTurnInFlight = errors.New("a query is already in flight for this session")
	ErrNoFiles      = errors.New("no files uploaded")
)

// Session is one study session held in memory. All fields are guarded by mu;
// callers go through the methods below.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	files        []tutor.EncodedFile
	conversation *conversation.State
	inFlight     bool
	lastError    string
	// generation changes on every reset so a query started before the reset
	// cannot append into the new transcript.
	generation uint64
}

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Files     []tutor.EncodedFile
	Turns     []tutor.Turn
	InFlight  bool
	LastError string
}

// Ticket identifies an in-flight turn.
type Ticket struct {
	Files      []tutor.EncodedFile
	generation uint64
}

func NewSession(id string) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		conversation: conversation.New(),
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Files:     append([]tutor.EncodedFile(nil), s.files...),
		Turns:     s.conversation.Current(),
		InFlight:  s.inFlight,
		LastError: s.lastError,
	}
}

// AddFiles appends a fully encoded batch; duplicates by name are kept.
func (s *Session) AddFiles(files []tutor.EncodedFile) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, files...)
	return len(s.files)
}

// RemoveFiles drops every file with the given display name and reports how many went.
func (s *Session) RemoveFiles(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.files[:0]
	removed := 0
	for _, f := range s.files {
		if f.DisplayName == name {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	// clear the tail so dropped payloads can be collected
	for i := len(kept); i < len(s.files); i++ {
		s.files[i] = tutor.EncodedFile{}
	}
	s.files = kept
	return removed
}

func (s *Session) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// BeginTurn marks the session busy, clears the banner and records the user's
// turn. The returned ticket carries the file set the query must use. Nothing
// changes when it returns an error.
func (s *Session) BeginTurn(userTurn tutor.Turn) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return Ticket{}, ErrTurnInFlight
	}
	if len(s.files) == 0 {
		return Ticket{}, ErrNoFiles
	}
	s.inFlight = true
	s.lastError = ""
	s.conversation.Append(userTurn)
	return Ticket{
		Files:      append([]tutor.EncodedFile(nil), s.files...),
		generation: s.generation,
	}, nil
}

// CompleteTurn appends the assistant turn and sets the banner. It reports
// false when the session was reset while the query ran; the turn is dropped.
func (s *Session) CompleteTurn(t Ticket, assistantTurn tutor.Turn, banner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.generation != s.generation {
		return false
	}
	s.inFlight = false
	s.lastError = banner
	s.conversation.Append(assistantTurn)
	return true
}

// Reset clears the transcript, the file set and the banner.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversation.Reset()
	s.files = nil
	s.lastError = ""
	s.inFlight = false
	s.generation++
}
