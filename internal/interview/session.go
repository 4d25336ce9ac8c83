package interview

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/pkg/audiobuf"
)

// Session holds one candidate's conversation state. It carries its own lock
// so workers and the watchdog can read through the registry without racing
// the gateway.
type Session struct {
	ID string

	mu              sync.RWMutex
	connID          string
	state           State
	stateEnteredAt  time.Time
	turnIndex       int
	position        string
	difficulty      float64
	interviewerType string
	history         []types.Utterance
	audio           *audiobuf.Buffer
	active          bool
	createdAt       time.Time
	lastActivity    time.Time
}

// View is a read-only copy of session fields, safe to hand across
// goroutine boundaries.
type View struct {
	ID              string    `json:"session_id"`
	ConnID          string    `json:"-"`
	State           State     `json:"state"`
	StateEnteredAt  time.Time `json:"state_entered_at"`
	TurnIndex       int       `json:"turn_index"`
	Position        string    `json:"position"`
	Difficulty      float64   `json:"difficulty"`
	InterviewerType string    `json:"interviewer_type"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`
	MessageCount    int       `json:"message_count"`
}

func newSession(cfg types.SessionConfig, connID string) *Session {
	now := time.Now()
	return &Session{
		ID:              uuid.NewString(),
		connID:          connID,
		state:           StateIdle,
		stateEnteredAt:  now,
		position:        cfg.Position,
		difficulty:      cfg.Difficulty,
		interviewerType: cfg.InterviewerType,
		audio:           audiobuf.New(audiobuf.DefaultCapacity),
		active:          true,
		createdAt:       now,
		lastActivity:    now,
	}
}

func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		ID:              s.ID,
		ConnID:          s.connID,
		State:           s.state,
		StateEnteredAt:  s.stateEnteredAt,
		TurnIndex:       s.turnIndex,
		Position:        s.position,
		Difficulty:      s.difficulty,
		InterviewerType: s.interviewerType,
		Active:          s.active,
		CreatedAt:       s.createdAt,
		LastActivity:    s.lastActivity,
		MessageCount:    len(s.history),
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) TurnIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnIndex
}

func (s *Session) ConnID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connID
}

// Configure updates the client-tunable fields. Zero values leave the
// current setting untouched.
func (s *Session) Configure(cfg types.SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Position != "" {
		s.position = cfg.Position
	}
	if cfg.Difficulty > 0 {
		s.difficulty = cfg.Difficulty
	}
	if cfg.InterviewerType != "" {
		s.interviewerType = cfg.InterviewerType
	}
	s.lastActivity = time.Now()
}

// AppendUtterance adds one line to the history. Returns false when the same
// speaker/text pair is already among the most recent entries, which is how a
// duplicated Result delivery is kept from doubling the transcript.
func (s *Session) AppendUtterance(speaker types.Speaker, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.history) - 1; i >= 0 && i >= len(s.history)-2; i-- {
		if s.history[i].Speaker == speaker && s.history[i].Text == text {
			return false
		}
	}

	s.history = append(s.history, types.Utterance{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.lastActivity = time.Now()
	return true
}

// History returns a copy of the full conversation.
func (s *Session) History() []types.Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Utterance, len(s.history))
	copy(out, s.history)
	return out
}

// RecentHistory returns up to maxTurns candidate/interviewer exchanges,
// newest last.
func (s *Session) RecentHistory(maxTurns int) []types.Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := maxTurns * 2
	start := 0
	if len(s.history) > n {
		start = len(s.history) - n
	}
	out := make([]types.Utterance, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// ClearAudio drops any buffered audio. Called at the start of each
// listening phase.
func (s *Session) ClearAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio.Reset()
}

// AppendAudio adds one PCM chunk in arrival order.
func (s *Session) AppendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	return s.audio.Append(chunk)
}

// SnapshotAudio drains the buffer, returning the concatenation of every
// chunk received this listening phase.
func (s *Session) SnapshotAudio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio.Snapshot()
}

func (s *Session) AudioLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audio.Len()
}

// incrementTurn bumps the turn counter. Exactly one increment per completed
// (or recovered) response cycle; only the registry calls this.
func (s *Session) incrementTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnIndex++
	return s.turnIndex
}

func (s *Session) setState(next State) (prev State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.state
	s.state = next
	s.stateEnteredAt = time.Now()
	s.lastActivity = time.Now()
	return prev
}

func (s *Session) bindConn(connID string) (old string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old = s.connID
	s.connID = connID
	s.active = true
	s.lastActivity = time.Now()
	return old
}

func (s *Session) markInactive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.lastActivity = time.Now()
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.stateEnteredAt = time.Now()
	s.turnIndex = 0
	s.history = nil
	s.audio.Reset()
	s.lastActivity = time.Now()
}

func (s *Session) expired(timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.active && time.Since(s.lastActivity) > timeout
}
