package domain

import "time"

// DefaultSessionID is used when a caller does not supply a session identifier
const DefaultSessionID = "default"

// Exchange is one human/assistant message pair in a session's history
type Exchange struct {
	Human     string    `json:"human"`
	AI        string    `json:"ai"`
	CreatedAt time.Time `json:"timestamp"`
}

// SessionStats describes a conversation session. Exists is false for
// sessions that were never created or have been evicted.
type SessionStats struct {
	Exists        bool       `json:"exists"`
	SessionID     string     `json:"session_id,omitempty"`
	MessageCount  int        `json:"message_count"`
	FirstActivity *time.Time `json:"created,omitempty"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}
