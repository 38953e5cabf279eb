package chat

import "time"

// titleLimit bounds how much of the first user message becomes the title.
const titleLimit = 30

// Conversation groups an ordered message history under a recency-sorted
// entry in the history panel.
type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	ModelID       string    `json:"modelId"`
}

// DeriveTitle derives a conversation title from the first user message,
// truncated with an ellipsis marker when it exceeds the limit.
func DeriveTitle(initialText string) string {
	runes := []rune(initialText)
	if len(runes) <= titleLimit {
		return initialText
	}
	return string(runes[:titleLimit]) + "..."
}
