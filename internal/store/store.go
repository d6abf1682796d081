// Package store defines the storage interface for the gateway and provides
// SQLite and PostgreSQL implementations.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the persistence interface for the gateway.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Usage profiles
	UpsertProfile(ctx context.Context, userID, preferredLanguage, styleNote string) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// Audit
	LogAuditEvent(ctx context.Context, event *AuditEvent) error
	ListAuditEvents(ctx context.Context, limit, offset int) ([]AuditEvent, error)

	// Health
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// User represents a gateway user. ExternalID links the record to a subject
// issued by an external identity authority; builtin users leave it empty.
type User struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "guest", "user" or "admin"
	CreatedAt    time.Time `json:"created_at"`
}

// Profile stores per-user assistant usage bookkeeping.
type Profile struct {
	UserID            string    `json:"user_id"`
	PreferredLanguage string    `json:"preferred_language"`
	StyleNotes        []string  `json:"style_notes"`
	LastUsed          time.Time `json:"last_used"`
}

// AuditEvent is a log entry for audit purposes.
type AuditEvent struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
