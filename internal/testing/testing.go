// package testing contains shared testing utilities
package testing

import (
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// EncryptionKey is a fixed 32-byte key (64 hex chars) for tests.
const EncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// MemoryJar is an in-memory [tokens.Jar] for tests. Safe for concurrent
// use so tests can exercise parallel refreshes.
type MemoryJar struct {
	mu     sync.Mutex
	Values map[string]string
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{Values: make(map[string]string)}
}

func (j *MemoryJar) Get(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Values[name]
}

func (j *MemoryJar) Set(name, value string, _ time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Values[name] = value
}

func (j *MemoryJar) Remove(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.Values, name)
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

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, os.ErrClosed
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
