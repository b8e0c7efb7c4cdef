package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Entry is a single chat turn as shown to the user.
// Pending entries are "thinking" placeholders and are removed once the work they stand for resolves.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Pending   bool      `json:"pending,omitempty"`
}
