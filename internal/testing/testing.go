// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
)

// MemoryStore is an in-memory [storage.BlobStore]. Keys list in sorted order.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutFail bool
}

func NewMemoryStore(objects map[string][]byte) *MemoryStore {
	if objects == nil {
		objects = map[string][]byte{}
	}
	return &MemoryStore{Objects: objects}
}

func (m *MemoryStore) List(ctx context.Context, bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.Objects))
}

func (m *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	return data, ok
}

// Put reads localPath into the store under key.
func (m *MemoryStore) Put(ctx context.Context, bucket, localPath, key string) bool {
	if m.PutFail {
		return false
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
	return true
}

// MemorySessions is an in-memory session store with the Load/Save contract of the sqlite repository.
type MemorySessions struct {
	mu       sync.Mutex
	data     map[string]map[string]string
	SaveFail error
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{data: map[string]map[string]string{}}
}

func (m *MemorySessions) Load(id string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.data[id]; ok {
		return maps.Clone(d), nil
	}
	return map[string]string{}, nil
}

func (m *MemorySessions) Save(id string, data map[string]string) error {
	if m.SaveFail != nil {
		return m.SaveFail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = maps.Clone(data)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
