package chat

import "time"

type PostMessageCommand struct {
	UserID    string
	Text      string
	CreatedAt time.Time
}

type SearchMessagesCommand struct {
	UserID string
	Terms  string
}
