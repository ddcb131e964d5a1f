// Package conversation tracks the per-chat /newpost dialogue.
package conversation

import (
	"sync"

	"group_helper/internal/model"
)

// State is one step of the dialogue. The concrete types are AwaitingContent
// and AwaitingTime; callers switch over them exhaustively.
type State interface {
	step() string
}

// AwaitingContent waits for the text or photo to schedule.
type AwaitingContent struct{}

// AwaitingTime holds the captured content and waits for the delivery time.
type AwaitingTime struct {
	Content model.Content
}

func (AwaitingContent) step() string { return "awaiting_content" }
func (AwaitingTime) step() string    { return "awaiting_time" }

// Name returns a short label for logging.
func Name(s State) string {
	if s == nil {
		return "none"
	}
	return s.step()
}

// Store keeps the dialogue state of every chat. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Get returns the state of a chat and whether one exists.
func (s *Store) Get(chatID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[chatID]
	return st, ok
}

// Set replaces the state of a chat.
func (s *Store) Set(chatID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = st
}

// Clear ends the dialogue of a chat.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}
