package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryObject is a stored blob with its content type.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in-process for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
	baseURL string
}

// NewMemoryStore returns an empty store whose presigned links point at baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject), baseURL: baseURL}
}

func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("put object: size mismatch: got %d want %d", n, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", ErrObjectNotFound
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, url.PathEscape(key), int64(expiry/time.Second)), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}
