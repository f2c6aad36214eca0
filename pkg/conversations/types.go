package conversations

import (
	"context"
	"time"
)

// DefaultName is used when a conversation is saved without a name.
const DefaultName = "Unnamed Conversation"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Status is the disposition of the request that produced an assistant
	// message: approved, blocked, refused, protected or error.
	Status string `json:"status,omitempty"`

	// Metadata holds client data that is stored as-is.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Conversation is a named, ordered list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Summary is the listing view of a conversation.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Summarize returns the listing view of c.
func (c *Conversation) Summarize() Summary {
	return Summary{
		ID:           c.ID,
		Name:         c.Name,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}

// Store persists conversations. Implementations are safe for concurrent use.
// Methods taking an id return ErrInvalidID for ids that are not UUIDs and
// ErrNotFound for unknown ones.
type Store interface {
	// List returns every conversation, most recently updated first.
	List(ctx context.Context) ([]Summary, error)

	// Get returns a conversation with its messages.
	Get(ctx context.Context, id string) (*Conversation, error)

	// Create saves a new conversation under a fresh UUID.
	Create(ctx context.Context, name string, messages []Message) (*Conversation, error)

	// Update replaces the messages, and the name when name is not empty.
	Update(ctx context.Context, id, name string, messages []Message) (*Conversation, error)

	// Append adds messages to the end of a conversation.
	Append(ctx context.Context, id string, messages ...Message) (*Conversation, error)

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error

	Close() error
}
