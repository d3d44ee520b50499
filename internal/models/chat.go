package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Only user and assistant messages are persisted; the system
// prompt is rebuilt on every query.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatSession groups an ordered sequence of conversation turns.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single persisted conversation turn. Append-only; within a
// session messages are always read back oldest first.
type Message struct {
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a role/content pair handed to the language model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the incoming query request.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Source is a human-readable citation for one retrieved chunk.
type Source struct {
	DocName string  `json:"doc_name"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
}

// ChatResponse is the outgoing answer with citations. The boundary never
// surfaces a transport fault: internal errors degrade to a fixed answer text.
type ChatResponse struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}
