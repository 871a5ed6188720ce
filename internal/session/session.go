// Package session tracks the connected device: an explicit session record
// created when the tablet is detected and a presence monitor that notices
// attach and detach.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one connected-device episode. It is created on
// detection and passed explicitly; there is no process-global current
// device.
type Session struct {
	ID        uuid.UUID
	Address   string
	Model     string
	StartedAt time.Time
}

// New creates a session record for a freshly detected device.
func New(address, model string) Session {
	return Session{
		ID:        uuid.New(),
		Address:   address,
		Model:     model,
		StartedAt: time.Now().UTC(),
	}
}

// Age reports how long the session has been open.
func (s Session) Age() time.Duration {
	return time.Since(s.StartedAt)
}
