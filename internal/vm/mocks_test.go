package vm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/storage"
	"github.com/jbweber/pvforge/internal/task"
)

const (
	createUPID  = "UPID:pve1:000A1B2C:0042F00D:65A1B2C3:qmcreate:903:root@pam:"
	startUPID   = "UPID:pve1:000A1B2D:0042F00E:65A1B2C4:qmstart:903:root@pam:"
	destroyUPID = "UPID:pve1:000A1B2E:0042F00F:65A1B2C5:qmdestroy:903:root@pam:"
)

type postCall struct {
	path string
	form url.Values
}

// mockAPIClient is a mock implementation of the apiClient interface for testing.
//
// By default GET requests are answered from resources, nodes and statuses,
// POST requests return createUPID and DELETE requests return destroyUPID.
type mockAPIClient struct {
	mu sync.Mutex

	resources []proxmox.ClusterResource
	nodes     []proxmox.Node
	statuses  map[string]string // status/current path -> status

	// Configurable behavior
	getFunc    func(path string) (*proxmox.Document, error)
	postFunc   func(path string, form url.Values) (*proxmox.Document, error)
	deleteFunc func(path string) (*proxmox.Document, error)

	// Call tracking
	getCalls    []string
	postCalls   []postCall
	deleteCalls []string
}

func newMockAPIClient() *mockAPIClient {
	m := &mockAPIClient{statuses: make(map[string]string)}

	m.getFunc = func(path string) (*proxmox.Document, error) {
		switch path {
		case clusterResourcesPath:
			return jsonDoc(append([]proxmox.ClusterResource{}, m.resources...)), nil
		case "/nodes":
			return jsonDoc(append([]proxmox.Node{}, m.nodes...)), nil
		}
		if status, ok := m.statuses[path]; ok {
			return jsonDoc(proxmox.VMStatus{Status: status}), nil
		}
		return nil, &proxmox.Error{Kind: proxmox.KindConnection, Message: "unexpected GET " + path}
	}

	m.postFunc = func(path string, form url.Values) (*proxmox.Document, error) {
		return jsonDoc(createUPID), nil
	}

	m.deleteFunc = func(path string) (*proxmox.Document, error) {
		return jsonDoc(destroyUPID), nil
	}

	return m
}

func (m *mockAPIClient) Get(ctx context.Context, path string) (*proxmox.Document, error) {
	m.mu.Lock()
	m.getCalls = append(m.getCalls, path)
	m.mu.Unlock()
	return m.getFunc(path)
}

func (m *mockAPIClient) Post(ctx context.Context, path string, form url.Values) (*proxmox.Document, error) {
	m.mu.Lock()
	m.postCalls = append(m.postCalls, postCall{path: path, form: form})
	m.mu.Unlock()
	return m.postFunc(path, form)
}

func (m *mockAPIClient) Delete(ctx context.Context, path string) (*proxmox.Document, error) {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, path)
	m.mu.Unlock()
	return m.deleteFunc(path)
}

// addVM registers a VM in the cluster resource listing.
func (m *mockAPIClient) addVM(vmType string, id int, node, name string) {
	m.resources = append(m.resources, proxmox.ClusterResource{
		ID:     fmt.Sprintf("%s/%d", vmType, id),
		VMID:   id,
		Name:   name,
		Node:   node,
		Type:   vmType,
		Status: "stopped",
	})
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

// mockSeedStore is a mock implementation of the seedStore interface.
type mockSeedStore struct {
	uploadFunc func(name string, data []byte, node, storageName string) (storage.UploadResult, error)
	deleteFunc func(node, storageName, volID string) (task.ExitStatus, error)

	uploadCalls []string // file names
	deleteCalls []string // volume ids
}

func newMockSeedStore() *mockSeedStore {
	return &mockSeedStore{
		uploadFunc: func(name string, data []byte, node, storageName string) (storage.UploadResult, error) {
			return storage.UploadResult{
				File:       name,
				VolID:      storageName + ":iso/" + name,
				ExitStatus: task.ExitOK,
			}, nil
		},
		deleteFunc: func(node, storageName, volID string) (task.ExitStatus, error) {
			return task.ExitOK, nil
		},
	}
}

func (m *mockSeedStore) UploadData(ctx context.Context, name string, data []byte, content storage.Content, node, storageName string) (storage.UploadResult, error) {
	m.uploadCalls = append(m.uploadCalls, name)
	return m.uploadFunc(name, data, node, storageName)
}

func (m *mockSeedStore) DeleteFile(ctx context.Context, node, storageName, volID string) (task.ExitStatus, error) {
	m.deleteCalls = append(m.deleteCalls, volID)
	return m.deleteFunc(node, storageName, volID)
}

type testDeps struct {
	client *mockAPIClient
	tasks  *mockTaskWaiter
	seeds  *mockSeedStore
}

func newTestManager(opts Options) (*Manager, testDeps) {
	deps := testDeps{
		client: newMockAPIClient(),
		tasks:  newMockTaskWaiter(),
		seeds:  newMockSeedStore(),
	}
	mgr, err := NewManager(deps.client, deps.tasks, deps.seeds, opts, zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return mgr, deps
}

func jsonDoc(v any) *proxmox.Document {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &proxmox.Document{Data: data}
}
