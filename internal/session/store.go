// Package session owns per-user conversation history for the chat relay.
// Each user gets an explicit bounded record; there is no shared global
// history.
package session

import (
	"sync"

	"pillbot/internal/llm"
)

// MaxHistory caps a session at the most recent turns (5 user/assistant
// pairs).
const MaxHistory = 10

type Store struct {
	mu       sync.RWMutex
	sessions map[int64][]llm.Message
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64][]llm.Message)}
}

// Append adds a message to the user's session, trims it to MaxHistory and
// returns a copy of the resulting history.
func (s *Store) Append(userID int64, msg llm.Message) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[userID], msg)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	s.sessions[userID] = history

	return copyOf(history)
}

// History returns a copy of the user's current session.
func (s *Store) History(userID int64) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyOf(s.sessions[userID])
}

// Clear drops the user's session.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func copyOf(history []llm.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out
}
