// Package runner executes a single agent descriptor against its backend.
//
// Every invocation gets a fresh in-memory session service and session. The
// runner turns the backend stream into session events and the invoker
// reduces those events to an agenkit.AgentResult.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// DefaultUserID is the user every session is opened for.
const DefaultUserID = "user_id"

// State is the lifecycle state of one invocation.
type State string

const (
	StateCreated       State = "CREATED"
	StateSessionOpen   State = "SESSION_OPEN"
	StateRequestSent   State = "REQUEST_SENT"
	StateStreaming     State = "STREAMING"
	StateFinalReceived State = "FINAL_RECEIVED"
	StateError         State = "ERROR"
)

// Terminal reports whether no further transition is expected.
func (s State) Terminal() bool {
	return s == StateFinalReceived || s == StateError
}

// Session holds the conversation of one agent invocation.
type Session struct {
	ID        string
	AppName   string
	UserID    string
	CreatedAt time.Time

	mu       sync.RWMutex
	trigger  string
	states   []State
	messages []*agenkit.Message
}

func newSession(appName, userID string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		AppName:   appName,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		states:    []State{StateCreated},
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[len(s.states)-1]
}

// States returns every state the session went through, in order.
func (s *Session) States() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]State(nil), s.states...)
}

// Trigger returns the input the invocation was started with.
func (s *Session) Trigger() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trigger
}

// Messages returns the messages exchanged in the session.
func (s *Session) Messages() []*agenkit.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*agenkit.Message(nil), s.messages...)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[len(s.states)-1] == state {
		return
	}
	s.states = append(s.states, state)
}

func (s *Session) setTrigger(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trigger = input
}

func (s *Session) append(msg *agenkit.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// SessionService is an in-memory session store.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates an empty session service.
func NewSessionService() *SessionService {
	return &SessionService{sessions: make(map[string]*Session)}
}

// CreateSession opens a new session for the given app and user.
func (s *SessionService) CreateSession(ctx context.Context, appName, userID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if appName == "" {
		return nil, fmt.Errorf("app name cannot be empty")
	}

	session := newSession(appName, userID)
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	session.setState(StateSessionOpen)
	return session, nil
}

// GetSession returns the session with the given ID.
func (s *SessionService) GetSession(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Len returns the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
