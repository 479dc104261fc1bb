package models

import "time"

// UserSession is the cached login state for a planner user.
type UserSession struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Roles        []string               `json:"roles"`
	CreatedAt    time.Time              `json:"created_at"`
	LastActivity time.Time              `json:"last_activity"`
	Settings     map[string]interface{} `json:"user_settings"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
}

// Notification is dispatched to the configured integrations (Slack, email)
// when a compute run finishes or fails.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // compute_failed, compute_succeeded, advisory
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Severity  string    `json:"severity"` // high, medium, low
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
}

// User is a registered planner account. PasswordHash is a bcrypt hash and is
// never serialized to API responses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}
