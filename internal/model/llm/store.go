package llm

// Store exposes model descriptor lookup for handlers and services.
type Store interface {
	List() []Model
	FindByID(id string) (Model, bool)
	// First returns the first configured descriptor, the fallback when a
	// requested id has no match.
	First() Model
	// Default returns the descriptor a fresh chat starts with.
	Default() Model
}

// MemoryStore implements Store with an in-memory slice; the catalog is
// static configuration, not persisted state.
type MemoryStore struct {
	items []Model
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models,
// resolving each descriptor's provider kind from its id.
func NewMemoryStore(items []Model) *MemoryStore {
	copied := append([]Model(nil), items...)
	for i := range copied {
		if copied[i].Kind == "" {
			copied[i].Kind = KindFor(copied[i].ID)
		}
	}
	return &MemoryStore{items: copied}
}

// List returns the configured model list.
func (s *MemoryStore) List() []Model {
	return append([]Model(nil), s.items...)
}

// FindByID looks up a model by identifier.
func (s *MemoryStore) FindByID(id string) (Model, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Model{}, false
}

// First returns the first configured model.
func (s *MemoryStore) First() Model {
	if len(s.items) == 0 {
		return Model{}
	}
	return s.items[0]
}

// Default prefers the proxy model for new chats, falling back to the first
// configured descriptor.
func (s *MemoryStore) Default() Model {
	if m, ok := s.FindByID(proxyModelID); ok {
		return m
	}
	return s.First()
}
