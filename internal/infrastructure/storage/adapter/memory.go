package adapter

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"kala-setu/internal/infrastructure/storage/port"
)

// Object is a stored blob with its content type.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryStore keeps objects in process. Used by tests and local runs without S3.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), baseURL: baseURL}
}

var _ port.ObjectStore = (*MemoryStore)(nil)

func (m *MemoryStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, "memory store: read body")
	}
	m.mu.Lock()
	m.objects[bucket+"/"+key] = Object{Body: b, ContentType: contentType}
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStore) PublicURL(bucket, key string) string {
	return m.baseURL + "/" + bucket + "/" + key
}

// Get returns a stored object.
func (m *MemoryStore) Get(bucket, key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[bucket+"/"+key]
	return o, ok
}
