package model

// ChatRole identifies the author of a transcript entry.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one entry in a follow-up chat transcript.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
