package daemon

import (
	"sync"
	"time"
)

// State is the supervisor's current phase.
type State string

const (
	StateProbing   State = "probing"
	StateStreaming State = "streaming"
	StateRecover   State = "recovering"
	StateStopped   State = "stopped"
)

// Status collects connection state and counters for the status API.
// The supervisor writes from its single loop; the API server reads
// snapshots concurrently.
type Status struct {
	mu            sync.Mutex
	state         State
	sessionID     string
	startedAt     time.Time
	connectedAt   time.Time
	events        uint64
	notifications uint64
	reconnects    uint64
}

func NewStatus() *Status {
	return &Status{state: StateProbing, startedAt: time.Now()}
}

func (s *Status) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state == StateStreaming {
		s.connectedAt = time.Now()
	}
}

func (s *Status) SetSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

func (s *Status) AddEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
}

func (s *Status) AddNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications++
}

func (s *Status) AddReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
}

// Snapshot is the JSON shape served by the status API.
type Snapshot struct {
	State          State  `json:"state"`
	SessionID      string `json:"sessionId,omitempty"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	ConnectedSince string `json:"connectedSince,omitempty"`
	Events         uint64 `json:"events"`
	Notifications  uint64 `json:"notifications"`
	Reconnects     uint64 `json:"reconnects"`
}

func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:         s.state,
		SessionID:     s.sessionID,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Events:        s.events,
		Notifications: s.notifications,
		Reconnects:    s.reconnects,
	}
	if s.state == StateStreaming && !s.connectedAt.IsZero() {
		snap.ConnectedSince = s.connectedAt.Format(time.RFC3339)
	}
	return snap
}
