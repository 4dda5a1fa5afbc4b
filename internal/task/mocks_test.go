package task

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// mockAPIClient is a mock implementation of the apiClient interface for testing.
type mockAPIClient struct {
	mu sync.Mutex

	getFunc  func(path string) (*proxmox.Document, error)
	getCalls []string
}

func newMockAPIClient() *mockAPIClient {
	m := &mockAPIClient{}
	m.getFunc = func(path string) (*proxmox.Document, error) {
		return statusDoc("stopped", "OK"), nil
	}
	return m
}

func (m *mockAPIClient) Get(ctx context.Context, path string) (*proxmox.Document, error) {
	m.mu.Lock()
	m.getCalls = append(m.getCalls, path)
	m.mu.Unlock()
	return m.getFunc(path)
}

// respondSequence makes the mock answer with docs in order, repeating the
// last one when the sequence runs out.
func (m *mockAPIClient) respondSequence(docs ...*proxmox.Document) {
	i := 0
	m.getFunc = func(path string) (*proxmox.Document, error) {
		doc := docs[i]
		if i < len(docs)-1 {
			i++
		}
		return doc, nil
	}
}

// statusDoc builds a task status document.
func statusDoc(status, exitStatus string) *proxmox.Document {
	data, _ := json.Marshal(proxmox.TaskStatus{Status: status, ExitStatus: exitStatus})
	return &proxmox.Document{Data: data}
}

// recordingSleep records requested sleeps without waiting.
type recordingSleep struct {
	calls []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

// newTestPoller creates a poller with a recording sleep.
func newTestPoller(client apiClient, policy Policy) (*Poller, *recordingSleep) {
	rec := &recordingSleep{}
	p := &Poller{
		client: client,
		policy: policy,
		sleep:  rec.sleep,
		logger: zerolog.Nop(),
	}
	return p, rec
}
