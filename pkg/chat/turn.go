package chat

// Role tags a turn with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Content is raw text; any
// Markdown in it is a display concern, not a storage one.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
