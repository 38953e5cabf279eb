package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/codenest/ai-chat/backend/internal/model/chat"
)

const (
	chatBucket       = "chat"
	conversationsKey = "chatConversations"
)

// ConversationStore persists the full conversation collection as a single
// JSON-serialized value under one key in a bbolt file. The repository treats
// it as a pure load/save boundary, not a live cache.
type ConversationStore struct {
	path string
}

// OpenConversationStore prepares a store at the given DB file path, creating
// parent directories as needed.
func OpenConversationStore(path string) (*ConversationStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &ConversationStore{path: path}, nil
}

// Load reads the conversation collection. Absence of the DB file, bucket or
// key means no history and yields an empty result, not an error. Timestamps
// come back as RFC 3339 strings and are reconstructed by the JSON decoder.
func (s *ConversationStore) Load() ([]chat.Conversation, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer func() { _ = db.Close() }()

	var raw []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(chatBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(conversationsKey)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation store: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var conversations []chat.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode stored conversations: %w", err)
	}
	return conversations, nil
}

// Save writes the full collection, replacing the previous value.
func (s *ConversationStore) Save(conversations []chat.Conversation) error {
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	data, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(chatBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(conversationsKey), data)
	})
}
