package registry

import "time"

// SessionSummary is one row of the registry stats listing
type SessionSummary struct {
	SessionID         string    `json:"session_id"`
	Character         string    `json:"character"`
	CreatedAt         time.Time `json:"created_at"`
	ConversationCount int       `json:"conversation_count"`
}

// Stats is a point-in-time snapshot of the registry
type Stats struct {
	ActiveSessions int              `json:"active_sessions"`
	QueueSize      int              `json:"queue_size"`
	WorkerAlive    bool             `json:"worker_alive"`
	Sessions       []SessionSummary `json:"sessions"`
}

// Stats reports the registry state for the status endpoint
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]SessionSummary, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, SessionSummary{
			SessionID:         id,
			Character:         s.state.Character.Name,
			CreatedAt:         s.state.CreatedAt,
			ConversationCount: len(s.state.History),
		})
	}

	return Stats{
		ActiveSessions: len(r.sessions),
		QueueSize:      len(r.tasks),
		WorkerAlive:    r.workerAlive(),
		Sessions:       sessions,
	}
}

func (r *Registry) workerAlive() bool {
	select {
	case <-r.workerDone:
		return false
	default:
		return true
	}
}
