// Package sessions tracks live capture sessions and bridges their workflow
// to the event bus and the detection history.
package sessions

import (
	"time"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/mood"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Session holds metadata about a capture session.
type Session struct {
	ID          string        `json:"id"`
	Device      string        `json:"device"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Status      SessionStatus `json:"status"`
	State       capture.State `json:"state"`
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	Label       mood.Label    `json:"label,omitempty"` // last detected mood
}
