package chat

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codenest/ai-chat/backend/internal/model/chat"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// Store is the persistence boundary for the conversation collection.
type Store interface {
	Load() ([]chat.Conversation, error)
	Save(conversations []chat.Conversation) error
}

// MessageUpdate is a partial patch merged into an existing message. Nil
// fields are left untouched.
type MessageUpdate struct {
	Text      *string
	IsLoading *bool
	IsError   *bool
}

// Service owns the conversation collection and the current-conversation
// pointer. The collection is always kept sorted by LastUpdatedAt descending,
// and every mutation writes the full collection through to the store; a
// failed write is logged and never rolls back the in-memory change.
type Service struct {
	mu            sync.RWMutex
	store         Store
	models        llm.Store
	conversations []chat.Conversation
	currentID     string
	activeModelID string
}

// NewService loads persisted history and restores the selection: the most
// recently updated conversation whose model is still configured, else the
// most recent one, else a fresh new-chat state. A storage read failure
// degrades to empty history.
func NewService(store Store, models llm.Store) *Service {
	s := &Service{store: store, models: models}

	loaded, err := store.Load()
	if err != nil {
		log.Printf("[chat] failed to load conversation history: %v", err)
		loaded = nil
	}
	s.conversations = loaded
	s.sortLocked()

	if len(s.conversations) == 0 {
		s.currentID = ""
		s.activeModelID = models.Default().ID
		return s
	}

	selected := s.conversations[0]
	for _, c := range s.conversations {
		if _, ok := models.FindByID(c.ModelID); ok {
			selected = c
			break
		}
	}
	s.currentID = selected.ID
	s.activeModelID = selected.ModelID
	return s
}

// Conversations returns a snapshot of the collection, newest first.
func (s *Service) Conversations() []chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyAllLocked()
}

// Get retrieves a conversation by identifier.
func (s *Service) Get(id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return copyConversation(s.conversations[idx]), nil
}

// Current returns the current conversation, if one is selected.
func (s *Service) Current() (chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentID == "" {
		return chat.Conversation{}, false
	}
	idx := s.indexLocked(s.currentID)
	if idx < 0 {
		return chat.Conversation{}, false
	}
	return copyConversation(s.conversations[idx]), true
}

// CurrentID returns the current-conversation pointer, empty for a new chat.
func (s *Service) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// ActiveModel resolves the active model selection, falling back to the
// first configured descriptor when the id has no match.
func (s *Service) ActiveModel() llm.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.models.FindByID(s.activeModelID); ok {
		return m
	}
	return s.models.First()
}

// CreateConversation allocates a conversation titled from the initial user
// text, inserts it at the head of the collection and makes it current.
func (s *Service) CreateConversation(initialText, modelID string) chat.Conversation {
	now := time.Now().UTC()
	conversation := chat.Conversation{
		ID:            uuid.NewString(),
		Title:         chat.DeriveTitle(initialText),
		Messages:      []chat.Message{},
		CreatedAt:     now,
		LastUpdatedAt: now,
		ModelID:       modelID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = append([]chat.Conversation{conversation}, s.conversations...)
	s.sortLocked()
	s.currentID = conversation.ID
	s.persistLocked()
	return copyConversation(conversation)
}

// SelectConversation moves the current pointer and adopts the stored model
// of the selected conversation.
func (s *Service) SelectConversation(id string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return chat.Conversation{}, ErrConversationNotFound
	}
	s.currentID = id
	s.activeModelID = s.conversations[idx].ModelID
	return copyConversation(s.conversations[idx]), nil
}

// DeleteConversation removes a conversation. When the current one is
// deleted, the most recently updated survivor is selected; deleting the
// last conversation clears to the new-chat state.
func (s *Service) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)

	if s.currentID == id {
		if len(s.conversations) > 0 {
			// Collection stays sorted, so the head is the most recent.
			s.currentID = s.conversations[0].ID
			s.activeModelID = s.conversations[0].ModelID
		} else {
			s.newChatLocked()
		}
	}
	s.persistLocked()
	return nil
}

// NewChat clears the current-conversation pointer and resets the active
// model to the default; a conversation is not created until the first
// message is sent.
func (s *Service) NewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newChatLocked()
}

// AppendMessage appends a message to a conversation, assigning id and
// timestamp when absent, and bumps the conversation's recency.
func (s *Service) AppendMessage(conversationID string, message chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(conversationID)
	if idx < 0 {
		return chat.Message{}, ErrConversationNotFound
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	s.conversations[idx].Messages = append(s.conversations[idx].Messages, message)
	s.touchLocked(idx)
	s.persistLocked()
	return message, nil
}

// UpdateMessage merges a partial patch into the matching message and bumps
// the conversation's recency. The sender is never part of the patch.
func (s *Service) UpdateMessage(conversationID, messageID string, patch MessageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(conversationID)
	if idx < 0 {
		return ErrConversationNotFound
	}

	messages := s.conversations[idx].Messages
	for i := range messages {
		if messages[i].ID != messageID {
			continue
		}
		if patch.Text != nil {
			messages[i].Text = *patch.Text
		}
		if patch.IsLoading != nil {
			messages[i].IsLoading = *patch.IsLoading
		}
		if patch.IsError != nil {
			messages[i].IsError = *patch.IsError
		}
		s.touchLocked(idx)
		s.persistLocked()
		return nil
	}
	return ErrMessageNotFound
}

// HasPendingReply reports whether the conversation still has an outstanding
// loading assistant message. The send flow keeps at most one in flight.
func (s *Service) HasPendingReply(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(conversationID)
	if idx < 0 {
		return false
	}
	for _, m := range s.conversations[idx].Messages {
		if m.IsLoading {
			return true
		}
	}
	return false
}

// SwitchModel updates the active model selection. When a conversation is
// current it adopts the new model id and records the switch with a system
// message; otherwise the selection only affects the next created chat.
func (s *Service) SwitchModel(modelID string) llm.Model {
	s.mu.Lock()

	s.activeModelID = modelID
	model, ok := s.models.FindByID(modelID)
	name := model.Name
	if !ok {
		name = "Unknown"
	}

	currentID := s.currentID
	if currentID != "" {
		if idx := s.indexLocked(currentID); idx >= 0 {
			s.conversations[idx].ModelID = modelID
			s.touchLocked(idx)
			s.persistLocked()
		}
	}
	s.mu.Unlock()

	if currentID != "" {
		if _, err := s.AppendMessage(currentID, chat.Message{
			Sender: chat.SenderSystem,
			Text:   "Switched to model: " + name,
		}); err != nil {
			log.Printf("[chat] failed to record model switch: %v", err)
		}
	}
	return model
}

func (s *Service) newChatLocked() {
	s.currentID = ""
	s.activeModelID = s.models.Default().ID
}

// touchLocked bumps recency and restores the sort order after a mutation.
func (s *Service) touchLocked(idx int) {
	s.conversations[idx].LastUpdatedAt = time.Now().UTC()
	s.sortLocked()
}

func (s *Service) sortLocked() {
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].LastUpdatedAt.After(s.conversations[j].LastUpdatedAt)
	})
}

// persistLocked writes the full collection through to the store. A failure
// is logged and the in-memory state stands; the next successful mutation
// re-attempts the write.
func (s *Service) persistLocked() {
	if err := s.store.Save(s.copyAllLocked()); err != nil {
		log.Printf("[chat] failed to persist conversations: %v", err)
	}
}

func (s *Service) indexLocked(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) copyAllLocked() []chat.Conversation {
	copied := make([]chat.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		copied[i] = copyConversation(c)
	}
	return copied
}

func copyConversation(c chat.Conversation) chat.Conversation {
	messages := make([]chat.Message, len(c.Messages))
	copy(messages, c.Messages)
	c.Messages = messages
	return c
}
