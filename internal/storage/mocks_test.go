package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/kdomanski/iso9660"

	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/task"
)

const uploadUPID = "UPID:pve1:00001234:00005678:65A1B2C3:imgcopy::root@pam:"

type uploadCall struct {
	path     string
	fields   map[string]string
	filename string
	body     []byte
}

// mockAPIClient is a mock implementation of the apiClient interface for testing.
type mockAPIClient struct {
	mu sync.Mutex

	// Configurable behavior
	getFunc    func(path string) (*proxmox.Document, error)
	deleteFunc func(path string) (*proxmox.Document, error)
	uploadFunc func(path string) (*proxmox.Document, error)

	// Call tracking
	getCalls    []string
	deleteCalls []string
	uploadCalls []uploadCall
}

func newMockAPIClient() *mockAPIClient {
	m := &mockAPIClient{}

	// Default: empty storage
	m.getFunc = func(path string) (*proxmox.Document, error) {
		return jsonDoc([]proxmox.StorageContent{}), nil
	}

	// Default: upload accepted
	m.uploadFunc = func(path string) (*proxmox.Document, error) {
		return jsonDoc(uploadUPID), nil
	}

	// Default: synchronous delete
	m.deleteFunc = func(path string) (*proxmox.Document, error) {
		return &proxmox.Document{Data: json.RawMessage("null")}, nil
	}

	return m
}

func (m *mockAPIClient) Get(ctx context.Context, path string) (*proxmox.Document, error) {
	m.mu.Lock()
	m.getCalls = append(m.getCalls, path)
	m.mu.Unlock()
	return m.getFunc(path)
}

func (m *mockAPIClient) Delete(ctx context.Context, path string) (*proxmox.Document, error) {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, path)
	m.mu.Unlock()
	return m.deleteFunc(path)
}

func (m *mockAPIClient) Upload(ctx context.Context, path string, fields map[string]string, filename string, content io.Reader) (*proxmox.Document, error) {
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.uploadCalls = append(m.uploadCalls, uploadCall{path: path, fields: fields, filename: filename, body: body})
	m.mu.Unlock()
	return m.uploadFunc(path)
}

// withFiles makes the storage listing return the given volume ids.
func (m *mockAPIClient) withFiles(volIDs ...string) {
	contents := make([]proxmox.StorageContent, 0, len(volIDs))
	for _, v := range volIDs {
		contents = append(contents, proxmox.StorageContent{VolID: v, Content: "iso", Format: "iso", Size: 1024})
	}
	m.getFunc = func(path string) (*proxmox.Document, error) {
		return jsonDoc(contents), nil
	}
}

// mockTaskWaiter is a mock implementation of the taskWaiter interface.
type mockTaskWaiter struct {
	waitFunc  func(upid, timeoutKey string) (task.ExitStatus, error)
	waitCalls []waitCall
}

type waitCall struct {
	upid       string
	timeoutKey string
}

func newMockTaskWaiter() *mockTaskWaiter {
	return &mockTaskWaiter{
		waitFunc: func(upid, timeoutKey string) (task.ExitStatus, error) {
			return task.ExitOK, nil
		},
	}
}

func (m *mockTaskWaiter) WaitForCompletion(ctx context.Context, upid, timeoutKey string) (task.ExitStatus, error) {
	m.waitCalls = append(m.waitCalls, waitCall{upid: upid, timeoutKey: timeoutKey})
	return m.waitFunc(upid, timeoutKey)
}

func jsonDoc(v any) *proxmox.Document {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &proxmox.Document{Data: data}
}

// buildISO returns a small ISO9660 image.
func buildISO(t *testing.T) []byte {
	t.Helper()

	w, err := iso9660.NewWriter()
	if err != nil {
		t.Fatalf("failed to create ISO writer: %v", err)
	}
	defer func() { _ = w.Cleanup() }()

	if err := w.AddFile(bytes.NewReader([]byte("hello")), "hello.txt"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}

	var buf bytes.Buffer
	if err := w.WriteTo(&buf, "TEST"); err != nil {
		t.Fatalf("failed to write ISO: %v", err)
	}
	return buf.Bytes()
}

// qcow2Image returns a minimal qcow2 header padded to 512 bytes.
func qcow2Image() []byte {
	data := []byte{0x51, 0x46, 0x49, 0xfb, 0x00, 0x00, 0x00, 0x03}
	return append(data, make([]byte, 504)...)
}

// rawImage returns a 4 KiB bootable raw image.
func rawImage() []byte {
	data := make([]byte, 4096)
	data[510] = 0x55
	data[511] = 0xaa
	return data
}
