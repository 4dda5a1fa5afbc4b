package vm

import (
	"context"
	"net/url"

	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/storage"
	"github.com/jbweber/pvforge/internal/task"
)

// apiClient defines the Proxmox API operations needed for VM management.
//
// In production, this is satisfied by *proxmox.Client directly.
// In tests, this is satisfied by mock implementations.
type apiClient interface {
	Get(ctx context.Context, path string) (*proxmox.Document, error)
	Post(ctx context.Context, path string, form url.Values) (*proxmox.Document, error)
	Delete(ctx context.Context, path string) (*proxmox.Document, error)
}

// taskWaiter waits for the task behind a UPID to finish.
//
// In production, this is satisfied by *task.Poller.
type taskWaiter interface {
	WaitForCompletion(ctx context.Context, upid, timeoutKey string) (task.ExitStatus, error)
}

// seedStore holds cloud-init seed ISOs.
//
// In production, this is satisfied by *storage.Manager.
// In tests, this is satisfied by mock implementations.
type seedStore interface {
	// UploadData uploads data under name unless a file with that name exists
	UploadData(ctx context.Context, name string, data []byte, content storage.Content, node, storageName string) (storage.UploadResult, error)

	// DeleteFile removes a volume from a storage
	DeleteFile(ctx context.Context, node, storageName, volID string) (task.ExitStatus, error)
}
