package chat

import "time"

// Message sender kinds. A message's sender never changes after creation.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
	SenderSystem    = "system"
)

// Message is a single turn inside a conversation. Text, IsLoading and
// IsError may be updated in place while an assistant reply is outstanding;
// every other field is fixed at creation.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsLoading bool      `json:"isLoading,omitempty"`
	IsError   bool      `json:"isError,omitempty"`
}
