package fieldstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process DocumentStore intended for tests and
// examples. Documents are kept in their encoded JSON form so values read
// back exactly as they would from a FileStore.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: map[string][]byte{}}
}

func (s *MemoryStore) Load(ctx context.Context, location string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapStorageError("load", location, err)
	}

	s.mu.RLock()
	raw, ok := s.documents[location]
	s.mu.RUnlock()
	if !ok {
		return Document{}, nil
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, wrapStorageError("load", location, err)
	}
	return doc, nil
}

func (s *MemoryStore) Save(ctx context.Context, location string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return wrapStorageError("save", location, err)
	}

	payload, err := encodeDocument(doc, "")
	if err != nil {
		return wrapStorageError("save", location, err)
	}

	s.mu.Lock()
	s.documents[location] = payload
	s.mu.Unlock()
	return nil
}

// Raw returns the encoded document saved at location.
func (s *MemoryStore) Raw(location string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.documents[location]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}
