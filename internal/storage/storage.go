// Package storage provides the object store for uploaded documents.
//
// Objects are keyed by {restaurantId}/{documentId}_{filename} so one
// restaurant's documents never collide with another's and re-uploads of
// the same document overwrite in place.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Store is the minimal contract the document pipeline needs: put the
// original file somewhere durable, hand back a public URL for the UI,
// and fetch the bytes again on reprocessing.
type Store interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (publicURL string, err error)
	Download(ctx context.Context, objectPath string) ([]byte, error)
}

// ObjectPath builds the canonical object key for a document.
func ObjectPath(restaurantID, documentID, filename string) string {
	clean := strings.ReplaceAll(path.Base(filename), " ", "_")
	return fmt.Sprintf("%s/%s_%s", restaurantID, documentID, clean)
}

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, objectPath string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[objectPath] = buf
	return "memory://" + objectPath, nil
}

func (m *MemoryStore) Download(_ context.Context, objectPath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectPath]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}
