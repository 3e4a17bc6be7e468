package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single broadcast chat message. Messages are append-only:
// once stored they are never mutated or deleted.
type Message struct {
	ID        uuid.UUID
	From      string
	Text      string
	Lang      string
	CreatedAt time.Time
}

// User is the identity anchor for authentication. There is no registration
// flow; users are seeded at boot.
type User struct {
	ID       string
	Password string
}
