package store

import "time"

// Model is a registered LLM model an agent can reference.
type Model struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ModelName   string    `json:"model_name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Agent is a configurable persona users converse with.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Persona     string    `json:"persona"` // system-prompt text
	ModelID     string    `json:"model_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a thread between one user and one agent.
// Title stays nil until the first completed turn summarizes it.
type Conversation struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	AgentID       string     `json:"agent_id"`
	Title         *string    `json:"title"`
	LastMessageAt *time.Time `json:"last_message_at"`
	Deleted       bool       `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message is a single utterance in a conversation. Messages are append-only;
// transcript order is (created_at, id).
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user, assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
